// Package anthropic provides a producer adapter for the Anthropic Claude API.
// The completion is requested non-streaming and segmented into structural
// units afterwards; the unit channel still delivers them incrementally.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dealdesk/docgen/producer"
)

// Options configures the Anthropic producer adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Producer wraps the Anthropic Messages API behind producer.Producer.
type Producer struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic producer using the official client.
func New(optFns ...func(o *Options)) *Producer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Producer{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic producer from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Producer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Producer{client: client, opts: opts}
}

// Produce implements producer.Producer.
func (p *Producer) Produce(ctx context.Context, req producer.Request) (<-chan producer.Unit, <-chan error) {
	out := make(chan producer.Unit, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := anthropic.MessageNewParams{
			Model:       p.opts.Model,
			Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
			MaxTokens:   p.opts.MaxTokens,
			Temperature: anthropic.Float(p.opts.Temperature),
		}
		if system := systemBlocks(req); len(system) > 0 {
			params.System = system
		}

		resp, err := p.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic api error: %w", err)
			return
		}

		seg := producer.NewSegmenter()
		for _, block := range resp.Content {
			if block.Type != "text" {
				continue
			}
			for _, u := range seg.Feed(block.AsText().Text) {
				select {
				case <-ctx.Done():
					return
				case out <- u:
				}
			}
		}
		for _, u := range seg.Flush() {
			select {
			case <-ctx.Done():
				return
			case out <- u:
			}
		}
	}()

	return out, errCh
}

func systemBlocks(req producer.Request) []anthropic.TextBlockParam {
	if req.Template == nil || req.Template.Instructions == "" {
		return nil
	}
	instructions := req.Template.Instructions
	if len(req.Template.Sections) > 0 {
		instructions += "\nSections: " + strings.Join(req.Template.Sections, ", ")
	}
	return []anthropic.TextBlockParam{{Text: instructions}}
}
