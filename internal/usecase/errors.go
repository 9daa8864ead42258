package usecase

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")
	ErrUnknownSource   = errors.New("unknown source")
	ErrCrawlInProgress = errors.New("crawl already in progress")
)
