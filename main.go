package main

import (
	"log"
)

// Build information injected at link time.
var (
	GitCommit string
	GitTag    string
	BuildTime string
)

// @title       Bookstore API
// @version     1.0
// @description Catalog of the online bookstore.
// @BasePath    /
func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatal("application failed to initialized: ", err)
	}
	err = app.Run()
	if err != nil {
		log.Fatal("application exited. check logs for more details.", err)
	}
}
