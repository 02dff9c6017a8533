// Package headhunter is a small client for the hh.ru API used as a job board
// search strategy.
package headhunter

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.hh.ru"
	userAgent = "jobscout/1.0 (+https://github.com/spigell/jobscout)"
	// Max value for search per page.
	perPage = "100"
	// hh.ru refuses to return more than 2000 items for a search anyway.
	defaultMaxPages = 5
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// MaxPages bounds how many result pages a single search may fetch.
	MaxPages int
}

// New returns a client. An empty token issues anonymous requests, which hh.ru
// allows for vacancy and employer search.
func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
		MaxPages:  defaultMaxPages,
	}
}
