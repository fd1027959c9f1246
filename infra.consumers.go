package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// replicaConsumer applies the mutations pushed by the book service
// onto a secondary storage, typically the embedded boltdb file.
type replicaConsumer struct {
	logger *zap.Logger
	queue  Queuer
	repo   BookStorage
}

func NewReplicaConsumer(logger *zap.Logger, q Queuer, repo BookStorage) Consumer {
	return &replicaConsumer{logger, q, repo}
}

// Consume pops mutations until the context is done. The replica converges
// to the primary even when it missed earlier events: an update of an unknown
// book creates it and a creation of a known book replaces it.
func (rc *replicaConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, book, err := rc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			rc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			rc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		if err = rc.apply(ctx, qid, book); err != nil {
			rc.logger.Error("consumer: failed to apply mutation", zap.String("qid", qid), zap.String("book.id", book.ID), zap.Error(err))
		}
	}
}

func (rc *replicaConsumer) apply(ctx context.Context, qid string, book Book) error {
	switch qid {
	case CreateQueue:
		err := rc.repo.Add(ctx, book.ID, book)
		if errors.Is(err, ErrBookAlreadyExists) {
			_, err = rc.repo.Update(ctx, book.ID, book)
		}
		return err
	case UpdateQueue:
		_, err := rc.repo.Update(ctx, book.ID, book)
		if errors.Is(err, ErrBookNotFound) {
			err = rc.repo.Add(ctx, book.ID, book)
		}
		return err
	case DeleteQueue:
		err := rc.repo.Delete(ctx, book.ID)
		if errors.Is(err, ErrBookNotFound) {
			return nil
		}
		return err
	default:
		rc.logger.Warn("consumer: received book on unknown queue id", zap.String("qid", qid), zap.String("book.id", book.ID))
		return nil
	}
}
