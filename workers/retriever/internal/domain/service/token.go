package service

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"letreviewer/workers/retriever/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// Extractor names accepted by NewTokenExtractor.
const (
	ExtractorRegex = "regex"
	ExtractorForm  = "form"
	ExtractorChain = "chain"
)

var confirmPattern = regexp.MustCompile(`confirm=([0-9A-Za-z_]+)`)

// RegexTokenExtractor finds the first confirm=<token> in the page. The token
// usually appears in the href of the "Download anyway" link.
type RegexTokenExtractor struct{}

// Extract returns the first match.
func (RegexTokenExtractor) Extract(body []byte) (domain.ConfirmationToken, bool) {
	m := confirmPattern.FindSubmatch(body)
	if m == nil {
		return domain.ConfirmationToken{}, false
	}
	return domain.ConfirmationToken{Value: string(m[1])}, true
}

// FormTokenExtractor reads the hidden confirm input of the warning page's
// download form.
type FormTokenExtractor struct{}

// Extract parses body as HTML and returns the first non-empty confirm value.
func (FormTokenExtractor) Extract(body []byte) (domain.ConfirmationToken, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.ConfirmationToken{}, false
	}

	var token string
	doc.Find(`form input[name="confirm"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("value"); ok && strings.TrimSpace(v) != "" {
			token = strings.TrimSpace(v)
			return false
		}
		return true
	})

	if token == "" {
		return domain.ConfirmationToken{}, false
	}
	return domain.ConfirmationToken{Value: token}, true
}

// ChainTokenExtractor asks each extractor in turn.
type ChainTokenExtractor []domain.TokenExtractor

// Extract returns the first hit.
func (c ChainTokenExtractor) Extract(body []byte) (domain.ConfirmationToken, bool) {
	for _, e := range c {
		if token, ok := e.Extract(body); ok {
			return token, true
		}
	}
	return domain.ConfirmationToken{}, false
}

// NewTokenExtractor returns the extractor registered under name. An empty
// name selects the regex extractor.
func NewTokenExtractor(name string) (domain.TokenExtractor, error) {
	switch name {
	case "", ExtractorRegex:
		return RegexTokenExtractor{}, nil
	case ExtractorForm:
		return FormTokenExtractor{}, nil
	case ExtractorChain:
		return ChainTokenExtractor{RegexTokenExtractor{}, FormTokenExtractor{}}, nil
	default:
		return nil, fmt.Errorf("unknown token extractor %q", name)
	}
}
