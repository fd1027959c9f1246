// Command storefront is a terminal client of the bookstore catalog with a
// local shopping cart.
package main

import (
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal("storefront failed to load configuration: ", err)
	}

	logger, closer, err := SetupLogging(config)
	if err != nil {
		log.Fatal("storefront failed to setup logging: ", err)
	}
	defer closer()

	logger.Info("storefront starting", zap.String("api.url", config.APIURL))
	m := newModel(NewClient(config.APIURL, config.Timeout), NewStore(), logger, config)
	if _, err = tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.Error("storefront exited", zap.Error(err))
		log.Fatal("storefront exited. check logs for more details.", err)
	}
	logger.Info("storefront stopped")
}
