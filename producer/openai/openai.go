// Package openai provides an implementation of producer.Producer using the
// OpenAI Chat Completions API with streaming. Streamed text deltas are pushed
// through a Segmenter so the worker receives structural production units
// rather than raw chunks.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/dealdesk/docgen/producer"
)

// Options configure the OpenAI producer adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Producer wraps the OpenAI Chat Completions API behind producer.Producer.
type Producer struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI producer using the official client.
func New(optFns ...func(o *Options)) *Producer {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI producer from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Producer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Producer{client: client, opts: opts}
}

// Produce implements producer.Producer. The completion is requested with
// streaming enabled; every delta runs through the segmenter and the resulting
// units are forwarded in order. Stream errors are job-fatal.
func (p *Producer) Produce(ctx context.Context, req producer.Request) (<-chan producer.Unit, <-chan error) {
	out := make(chan producer.Unit, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := openai.ChatCompletionNewParams{
			Messages:            buildMessages(req),
			Model:               p.opts.Model,
			Temperature:         openai.Float(p.opts.Temperature),
			MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
		}

		seg := producer.NewSegmenter()
		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			ck := stream.Current()
			for _, ch := range ck.Choices {
				if ch.Delta.Content == "" {
					continue
				}
				if !forward(ctx, out, seg.Feed(ch.Delta.Content)) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
			return
		}
		forward(ctx, out, seg.Flush())
	}()

	return out, errCh
}

// buildMessages assembles the chat messages from the template instructions
// and the caller prompt.
func buildMessages(req producer.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Template != nil && req.Template.Instructions != "" {
		instructions := req.Template.Instructions
		if len(req.Template.Sections) > 0 {
			instructions += "\nSections: " + strings.Join(req.Template.Sections, ", ")
		}
		messages = append(messages, openai.SystemMessage(instructions))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))
	return messages
}

func forward(ctx context.Context, out chan<- producer.Unit, units []producer.Unit) bool {
	for _, u := range units {
		select {
		case <-ctx.Done():
			return false
		case out <- u:
		}
	}
	return true
}
