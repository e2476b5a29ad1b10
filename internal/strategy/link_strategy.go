package strategy

import "strings"

// ResultsPath is the URL prefix under which artifacts are served
const ResultsPath = "/results/"

// LinkStrategy defines how artifact names become caller-facing URLs
type LinkStrategy interface {
	Link(name string) string
	GetStrategyName() string
}

// RelativeLinkStrategy produces host-relative links
type RelativeLinkStrategy struct{}

// NewRelativeLinkStrategy creates a new relative link strategy
func NewRelativeLinkStrategy() LinkStrategy {
	return RelativeLinkStrategy{}
}

// Link returns /results/<name>
func (RelativeLinkStrategy) Link(name string) string {
	return ResultsPath + name
}

// GetStrategyName returns the strategy name
func (RelativeLinkStrategy) GetStrategyName() string {
	return "relative"
}

// AbsoluteLinkStrategy prefixes links with a public base URL
type AbsoluteLinkStrategy struct {
	baseURL string
}

// NewAbsoluteLinkStrategy creates a new absolute link strategy
func NewAbsoluteLinkStrategy(baseURL string) LinkStrategy {
	return &AbsoluteLinkStrategy{baseURL: strings.TrimRight(baseURL, "/")}
}

// Link returns <base>/results/<name>
func (s *AbsoluteLinkStrategy) Link(name string) string {
	return s.baseURL + ResultsPath + name
}

// GetStrategyName returns the strategy name
func (s *AbsoluteLinkStrategy) GetStrategyName() string {
	return "absolute"
}

// NewLinkStrategy picks absolute links when a public base URL is configured
func NewLinkStrategy(publicBaseURL string) LinkStrategy {
	if strings.TrimSpace(publicBaseURL) == "" {
		return NewRelativeLinkStrategy()
	}
	return NewAbsoluteLinkStrategy(publicBaseURL)
}
