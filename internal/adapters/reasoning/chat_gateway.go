package reasoning

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fleet-agent-service/internal/config"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/platform/obs"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed decision.schema.json
var decisionSchema string

const systemPrompt = `You are the autonomous dispatcher of one truck in a logistics fleet.
Keep deliveries on time while limiting fuel cost and risk.

Each message is a JSON summary of the truck: position, fuel, capacity, remaining route,
nearby loads, the nearest fuel station and recent events.

Pick exactly one action:
- CONTINUE: keep the current plan.
- REROUTE: replan the route; "target" may name a node to pass through first.
- REFUEL: head to a fuel station; "target" may name one, otherwise the nearest is used.
- ACCEPT_LOAD: take a nearby load; "target" is the load id. Weight must fit the free capacity.
- REJECT_LOAD: decline a load or give back one not yet picked up; "target" is the load id.
- STOP: halt after the current road segment.

Refuel before the tank runs dry. Prefer loads with a high profit per unit of weight.
If nothing requires a change, CONTINUE.

Reply with JSON only, exactly in this format:
{"action": "CONTINUE", "target": "", "confidence": 0.9, "rationale": "one sentence", "thoughts": ["step 1", "step 2"]}`

// ChatGateway implements ReasoningGateway on an OpenAI-compatible chat-completions API
// (Groq by default).
//
// Each Evaluate makes exactly one HTTP attempt bounded by the configured timeout.
// A 429 answer mutes the backend for the cooldown period; calls made meanwhile fail fast
// with GatewayUnavailableError. The gateway is safe for concurrent use.
type ChatGateway struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	timeout     time.Duration
	cooldown    time.Duration
	limits      PromptLimits
	schema      *jsonschema.Schema

	cooldownUntil atomic.Int64
	now           func() time.Time
	newID         func() string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type decisionReply struct {
	Action     string   `json:"action"`
	Target     string   `json:"target"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Thoughts   []string `json:"thoughts"`
}

func NewChatGateway(apiKey string, cfg config.Reasoning) (*ChatGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("reasoning api key is empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("reasoning timeout must be positive, got %s", cfg.Timeout)
	}

	schema, err := jsonschema.CompileString("decision.schema.json", decisionSchema)
	if err != nil {
		return nil, fmt.Errorf("compile decision schema: %w", err)
	}

	return &ChatGateway{
		// The per-call context carries the real deadline; this only guards against leaks.
		session:     &http.Client{Timeout: cfg.Timeout + time.Second},
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		cooldown:    cfg.RateLimitCooldown,
		limits: PromptLimits{
			MaxBytes:  cfg.MaxSummaryBytes,
			MaxLoads:  cfg.MaxPromptLoads,
			MaxEvents: cfg.MaxPromptEvents,
			MaxRoute:  cfg.MaxPromptRoute,
		},
		schema: schema,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Evaluate asks the backend for one decision about the observed truck.
func (g *ChatGateway) Evaluate(ctx context.Context, o domain.Observation) (_ domain.Decision, err error) {
	defer obs.Time(ctx, "reasoning.chat.Evaluate")(&err)

	if until := g.cooldownUntil.Load(); until > 0 {
		if left := time.Unix(0, until).Sub(g.now()); left > 0 {
			return domain.Decision{}, &domain.GatewayUnavailableError{
				Reason: fmt.Sprintf("rate limited, cooling down for %s", left.Round(time.Second)),
			}
		}
	}

	summary, err := BuildSummary(o, g.limits)
	if err != nil {
		return domain.Decision{}, &domain.GatewayUnavailableError{Reason: "summary too large", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var cr chatResponse
	err = g.postJSON(ctx, "/chat/completions", chatRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(summary)},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}, &cr)
	var de *replyDecodeError
	switch {
	case errors.As(err, &de):
		return domain.Decision{}, &domain.GatewayParseError{Reason: "decode chat response", Err: de.err}
	case err != nil:
		return domain.Decision{}, g.classify(ctx, err)
	}
	if len(cr.Choices) == 0 {
		return domain.Decision{}, &domain.GatewayParseError{Reason: "chat response has no choices"}
	}

	d, err := g.parseDecision(cr.Choices[0].Message.Content)
	if err != nil {
		return domain.Decision{}, err
	}
	d.DecisionID = g.newID()
	d.TruckID = o.Truck.TruckID
	d.Source = domain.SourceGateway
	d.Timestamp = o.Clock
	return d, nil
}

// parseDecision unwraps a reply from optional markdown fences and validates it against
// the decision schema.
func (g *ChatGateway) parseDecision(content string) (domain.Decision, error) {
	raw := stripFences(content)

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.Decision{}, &domain.GatewayParseError{Reason: "reply is not JSON", Err: err}
	}
	if err := g.schema.Validate(doc); err != nil {
		return domain.Decision{}, &domain.GatewayParseError{Reason: "reply does not match the decision schema", Err: err}
	}

	var r decisionReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return domain.Decision{}, &domain.GatewayParseError{Reason: "decode decision", Err: err}
	}
	action, err := domain.ParseAction(r.Action)
	if err != nil {
		return domain.Decision{}, &domain.GatewayParseError{Reason: "decode decision", Err: err}
	}

	return domain.Decision{
		Action:     action,
		Target:     strings.TrimSpace(r.Target),
		Confidence: r.Confidence,
		Rationale:  r.Rationale,
		Thoughts:   r.Thoughts,
	}, nil
}

// classify maps transport failures onto the gateway error taxonomy.
func (g *ChatGateway) classify(ctx context.Context, err error) error {
	var he *httpStatusError
	if errors.As(err, &he) {
		if he.Code == http.StatusTooManyRequests && g.cooldown > 0 {
			g.cooldownUntil.Store(g.now().Add(g.cooldown).UnixNano())
			return &domain.GatewayUnavailableError{Reason: fmt.Sprintf("rate limited, muted for %s", g.cooldown), Err: err}
		}
		return &domain.GatewayUnavailableError{Reason: fmt.Sprintf("HTTP %d", he.Code), Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.GatewayTimeoutError{Timeout: g.timeout, Err: err}
	}
	return &domain.GatewayUnavailableError{Reason: "request failed", Err: err}
}

// stripFences removes the markdown code fences models like to wrap JSON in.
func stripFences(s string) string {
	if _, after, ok := strings.Cut(s, "```json"); ok {
		s = after
	} else if _, after, ok := strings.Cut(s, "```"); ok {
		s = after
	}
	if before, _, ok := strings.Cut(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
