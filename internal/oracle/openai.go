package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/clipcheck/clipcheck/internal/model"
)

// OpenAIClient implements GateEvaluator and ContentRewriter using OpenAI's
// Chat Completions API.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates an oracle client. baseURL may be empty for the
// default endpoint.
func NewOpenAIClient(apiKey, baseURL, modelName string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   modelName,
		timeout: timeout,
	}, nil
}

// Evaluate asks the model one binary question about the content and parses
// a JSON verdict from the reply. Transport and API failures come back as
// *Error so the caller's retry policy can distinguish them from a "no".
func (c *OpenAIClient) Evaluate(ctx context.Context, content string, gate model.GateSpec) (Verdict, error) {
	prompt := buildGatePrompt(content, gate)

	reply, err := c.complete(ctx, "evaluate",
		"You are a strict fact-check quality gate. Answer only with a JSON object of the form "+
			`{"passed": bool, "justification": string, "evidence": string}. No prose outside the JSON.`,
		prompt)
	if err != nil {
		return Verdict{}, err
	}

	verdict, err := parseVerdict(reply)
	if err != nil {
		// A malformed reply is a transport-class failure: the gate gave no
		// usable verdict, so it is retryable rather than a rejection.
		return Verdict{}, &Error{Op: "evaluate", Err: err}
	}
	return verdict, nil
}

// Rewrite asks the model to correct the content, addressing each piece of
// failing-gate feedback while keeping the original framing.
func (c *OpenAIClient) Rewrite(ctx context.Context, content string, feedback []string) (string, error) {
	var b strings.Builder
	b.WriteString("Rewrite the fact-check rebuttal below so it addresses every issue listed. ")
	b.WriteString("Keep the tone and length similar. Return only the rewritten text.\n\nIssues:\n")
	for _, f := range feedback {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nRebuttal:\n")
	b.WriteString(content)

	reply, err := c.complete(ctx, "rewrite",
		"You are an editor correcting fact-check rebuttals. Return only the corrected text.",
		b.String())
	if err != nil {
		return "", err
	}

	corrected := strings.TrimSpace(reply)
	if corrected == "" {
		return "", &Error{Op: "rewrite", Err: fmt.Errorf("empty rewrite response")}
	}
	return corrected, nil
}

func (c *OpenAIClient) complete(ctx context.Context, op, system, user string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", &Error{Op: op, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Op: op, Err: fmt.Errorf("no response choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func buildGatePrompt(content string, gate model.GateSpec) string {
	question := gate.Prompt
	if question == "" {
		question = fmt.Sprintf("Does this content pass the %q quality gate?", gate.Name)
	}
	return fmt.Sprintf("Gate: %s\nQuestion: %s\n\nContent:\n%s", gate.Name, question, content)
}

// parseVerdict extracts the JSON verdict object from a model reply,
// tolerating markdown code fences and surrounding prose.
func parseVerdict(reply string) (Verdict, error) {
	text := strings.TrimSpace(reply)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Verdict{}, fmt.Errorf("no JSON object in reply: %q", truncate(text, 120))
	}

	var v Verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
