package toxicity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultAttributes 默认请求的属性，和 cons 中的 flag_reason 闭集对应
var DefaultAttributes = []string{
	"TOXICITY", "SEVERE_TOXICITY", "IDENTITY_ATTACK", "INSULT",
	"PROFANITY", "THREAT", "SEXUALLY_EXPLICIT", "FLIRTATION", "SPAM",
}

// HTTPClassifier Perspective 风格的 JSON 接口
//
//	POST {BaseURL}?key={APIKey}
//	{"comment":{"text":"..."},"requestedAttributes":{"TOXICITY":{}},"doNotStore":true}
//	-> {"attributeScores":{"TOXICITY":{"summaryScore":{"value":0.12}}}}
type HTTPClassifier struct {
	BaseURL    string
	APIKey     string
	Attributes []string
	HTTPClient *http.Client
}

func NewHTTPClassifier(baseURL, apiKey string) *HTTPClassifier {
	return &HTTPClassifier{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Attributes: DefaultAttributes,
		HTTPClient: &http.Client{},
	}
}

type analyzeRequest struct {
	Comment struct {
		Text string `json:"text"`
	} `json:"comment"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	DoNotStore          bool                `json:"doNotStore"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

var _ Classifier = (*HTTPClassifier)(nil)

func (c *HTTPClassifier) Classify(ctx context.Context, text string) (map[string]float64, error) {
	var body analyzeRequest
	body.Comment.Text = text
	body.DoNotStore = true
	body.RequestedAttributes = make(map[string]struct{}, len(c.Attributes))
	for _, a := range c.Attributes {
		body.RequestedAttributes[strings.ToUpper(a)] = struct{}{}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := c.BaseURL
	if c.APIKey != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "key=" + c.APIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("toxicity: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("toxicity: decode response: %w", err)
	}
	scores := make(map[string]float64, len(out.AttributeScores))
	for attr, s := range out.AttributeScores {
		scores[strings.ToLower(attr)] = s.SummaryScore.Value
	}
	return scores, nil
}
