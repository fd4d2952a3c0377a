package casepredict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"

	"github.com/PabloGalante/legalai-pro/internal/app/assistant"
	"github.com/PabloGalante/legalai-pro/internal/domain"
	"github.com/PabloGalante/legalai-pro/internal/observability"
)

// ErrMissingFields is returned when case type, description or jurisdiction is empty.
var ErrMissingFields = errors.New("case type, description, and jurisdiction are required")

const predictionSession domain.SessionID = "case-prediction"

// outcomePreviewLen is the number of characters of an unstructured reply kept as outcome.
const outcomePreviewLen = 200

// Used when the model's reply carries no structured value.
const (
	DefaultConfidence = 78
	DefaultTimeline   = "6-12 months"
)

var (
	DefaultFactors = []string{
		"Strong evidence documentation",
		"Clear liability establishment",
		"Favorable jurisdiction precedents",
	}
	DefaultRecommendations = []string{
		"Consider mediation before litigation",
		"Strengthen evidence collection",
		"Prepare for settlement negotiations",
	}
)

const promptTemplate = `Analyze this legal case and provide a prediction:

Case Type: %s
Description: %s
Jurisdiction: %s
Case Value: %s
Parties: %s

Provide:
1. Predicted outcome probability (as percentage)
2. Key factors affecting the case
3. Strategic recommendations
4. Estimated timeline
5. Potential settlement range (if applicable)

Format as JSON with clear sections, using the keys "confidence", "outcome", "factors",
"recommendations", "timeline" and "settlement_range".`

type Request struct {
	CaseType        string `json:"case_type"`
	CaseDescription string `json:"case_description"`
	Jurisdiction    string `json:"jurisdiction"`
	CaseValue       string `json:"case_value,omitempty"`
	PartiesInvolved string `json:"parties_involved,omitempty"`
}

func (r Request) validate() error {
	if strings.TrimSpace(r.CaseType) == "" ||
		strings.TrimSpace(r.CaseDescription) == "" ||
		strings.TrimSpace(r.Jurisdiction) == "" {
		return ErrMissingFields
	}
	return nil
}

func (r Request) prompt() string {
	return fmt.Sprintf(promptTemplate, r.CaseType, r.CaseDescription, r.Jurisdiction, r.CaseValue, r.PartiesInvolved)
}

type Prediction struct {
	Confidence      int      `json:"confidence"`
	Outcome         string   `json:"outcome"`
	Factors         []string `json:"factors"`
	Recommendations []string `json:"recommendations"`
	Timeline        string   `json:"timeline"`
	SettlementRange string   `json:"settlement_range,omitempty"`
	FullAnalysis    string   `json:"full_analysis"`
}

// Service predicts case outcomes with a bot that never remembers previous cases.
type Service struct {
	bot *assistant.Bot

	// held across reset and ask so concurrent predictions never see each other
	mu sync.Mutex
}

func NewService(llm domain.LLMClient, history domain.HistoryStore) *Service {
	return &Service{
		bot: assistant.NewBot(llm, history, predictionSession, assistant.Options{MaxHistoryTurns: 1}),
	}
}

// Predict always returns a prediction for a valid request. Model failures and
// unstructured replies fall back to default values.
func (s *Service) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("case_type", req.CaseType, "jurisdiction", req.Jurisdiction)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bot.Reset(ctx); err != nil {
		log.Warn("failed to reset prediction history", "error", err)
	}

	reply, err := s.bot.AskErr(ctx, req.prompt())
	if err != nil {
		log.Error("error in case prediction", "error", err)
		return defaultPrediction(assistant.FallbackReply), nil
	}

	p, err := parsePrediction(reply)
	if err != nil {
		log.Info("prediction reply is not structured, using defaults", "error", err)
		return defaultPrediction(reply), nil
	}

	log.Info("case prediction completed", "confidence", p.Confidence)
	return p, nil
}

func defaultPrediction(reply string) *Prediction {
	return &Prediction{
		Confidence:      DefaultConfidence,
		Outcome:         preview(reply),
		Factors:         append([]string(nil), DefaultFactors...),
		Recommendations: append([]string(nil), DefaultRecommendations...),
		Timeline:        DefaultTimeline,
		FullAnalysis:    reply,
	}
}

// preview keeps the first outcomePreviewLen characters, marking the cut with "...".
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= outcomePreviewLen {
		return s
	}
	return string(runes[:outcomePreviewLen]) + "..."
}

type rawPrediction struct {
	Confidence      json.RawMessage `json:"confidence"`
	Outcome         json.RawMessage `json:"outcome"`
	Factors         json.RawMessage `json:"factors"`
	Recommendations json.RawMessage `json:"recommendations"`
	Timeline        json.RawMessage `json:"timeline"`
	SettlementRange json.RawMessage `json:"settlement_range"`
}

// parsePrediction reads the JSON object embedded in reply, repairing it when needed.
// Missing fields take the default values.
func parsePrediction(reply string) (*Prediction, error) {
	body, ok := extractObject(reply)
	if !ok {
		return nil, errors.New("no JSON object in reply")
	}

	var raw rawPrediction
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(body)
		if repairErr != nil {
			return nil, fmt.Errorf("unmarshal: %w, repair: %v", err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, fmt.Errorf("unmarshal repaired reply: %w", err)
		}
	}

	p := defaultPrediction(reply)
	if c, ok := percentage(raw.Confidence); ok {
		p.Confidence = c
	}
	if s := text(raw.Outcome); s != "" {
		p.Outcome = s
	}
	if l := list(raw.Factors); len(l) > 0 {
		p.Factors = l
	}
	if l := list(raw.Recommendations); len(l) > 0 {
		p.Recommendations = l
	}
	if s := text(raw.Timeline); s != "" {
		p.Timeline = s
	}
	p.SettlementRange = text(raw.SettlementRange)

	return p, nil
}

// extractObject returns the text between the first '{' and the last '}', which drops
// markdown fences and prose around the object. An unclosed object is returned as is
// for jsonrepair to close.
func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return s[start:], true
	}
	return s[start : end+1], true
}

// percentage accepts 78, 78.4, 0.78, "78%" and "78".
func percentage(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	}

	if f > 0 && f <= 1 {
		f *= 100
	}
	if f < 0 || f > 100 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// text renders a string value as is and any other value as compact JSON.
func text(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// list accepts an array of values or a single value.
func list(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := text(raw); s != "" {
			return []string{s}
		}
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := text(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
