//
// Copyright (C) 2025 The doc-mcp authors.  All rights reserved.
//
// doc-mcp is licensed under the Apache License Version 2.0.
//

// Package chat provides a thin client for an OpenAI-compatible chat
// completion endpoint. It sends a system/user prompt pair and returns the
// assistant's text; prompt construction belongs to the callers.
package chat

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// Client calls the chat completion endpoint.
type Client struct {
	client         openai.Client
	model          string
	apiKey         string
	baseURL        string
	requestOptions []option.RequestOption
}

// Option represents a functional option for configuring the Client.
type Option func(*Client)

// WithModel sets the chat model to use.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithBaseURL sets the base URL, for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRequestOptions sets additional options for the underlying client requests.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *Client) {
		c.requestOptions = append(c.requestOptions, opts...)
	}
}

// New creates a new chat client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		model: DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}

	var clientOpts []option.RequestOption
	if c.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(c.apiKey))
	}
	if c.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(c.baseURL))
	}
	c.client = openai.NewClient(clientOpts...)
	return c
}

// Request holds one chat completion request.
type Request struct {
	// System is the system prompt; empty means no system message.
	System string
	// User is the user message.
	User string
	// MaxTokens caps the completion length when > 0.
	MaxTokens int
	// Temperature is the sampling temperature when >= 0.
	Temperature float64
}

// Complete sends the request and returns the assistant message content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if req.User == "" {
		return "", errors.New("chat: user message cannot be empty")
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	chatRequest := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatRequest.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature >= 0 {
		chatRequest.Temperature = openai.Float(req.Temperature)
	}

	requestOpts := make([]option.RequestOption, len(c.requestOptions))
	copy(requestOpts, c.requestOptions)

	response, err := c.client.Chat.Completions.New(ctx, chatRequest, requestOpts...)
	if err != nil {
		return "", fmt.Errorf("chat: completion request: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}

// Model returns the configured chat model identifier.
func (c *Client) Model() string {
	return c.model
}
