package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"storyteller-server/internal/config"
	"storyteller-server/internal/models"
)

var (
	ttsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyteller_tts_requests_total",
			Help: "Total number of requests to the TTS API.",
		},
		[]string{"voice", "status"},
	)
	ttsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyteller_tts_request_duration_seconds",
			Help:    "Histogram of TTS API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"voice"},
	)
)

// TTSClient — интерфейс синтеза речи. Возвращает аудиоданные (mp3).
type TTSClient interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	// VoiceID возвращает идентификатор голоса, которым синтезируется речь.
	VoiceID() string
}

// elevenLabsClient реализует TTSClient поверх ElevenLabs API.
type elevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	voiceID    string
	modelID    string
	logger     *zap.Logger
}

// NewElevenLabsClient создает клиент синтеза речи ElevenLabs.
func NewElevenLabsClient(cfg *config.Config, logger *zap.Logger) TTSClient {
	return &elevenLabsClient{
		httpClient: &http.Client{Timeout: cfg.TTSTimeout},
		baseURL:    cfg.TTSBaseURL,
		apiKey:     cfg.TTSAPIKey,
		voiceID:    cfg.TTSVoiceID,
		modelID:    cfg.TTSModelID,
		logger:     logger,
	}
}

// ttsRequest — тело запроса к ElevenLabs text-to-speech.
type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (c *elevenLabsClient) VoiceID() string {
	return c.voiceID
}

// Synthesize отправляет текст в ElevenLabs и возвращает mp3-данные.
func (c *elevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	log := c.logger.With(zap.String("voice_id", c.voiceID))

	reqBodyBytes, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.75,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpointURL := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	startTime := time.Now()
	log.Debug("Sending request to TTS API", zap.Int("text_chars", len(text)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("TTS API request failed", zap.Error(err))
		ttsRequestsTotal.With(prometheus.Labels{"voice": c.voiceID, "status": "error"}).Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrTTSFailed, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	duration := time.Since(startTime)

	if resp.StatusCode != http.StatusOK {
		log.Error("TTS API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", bodyBytes))
		ttsRequestsTotal.With(prometheus.Labels{"voice": c.voiceID, "status": "error"}).Inc()
		return nil, fmt.Errorf("%w: API returned status %d", models.ErrTTSFailed, resp.StatusCode)
	}
	if readErr != nil {
		ttsRequestsTotal.With(prometheus.Labels{"voice": c.voiceID, "status": "error"}).Inc()
		return nil, fmt.Errorf("%w: failed to read response body: %v", models.ErrTTSFailed, readErr)
	}
	if len(bodyBytes) == 0 {
		ttsRequestsTotal.With(prometheus.Labels{"voice": c.voiceID, "status": "error_empty_response"}).Inc()
		return nil, fmt.Errorf("%w: empty audio data", models.ErrTTSFailed)
	}

	ttsRequestsTotal.With(prometheus.Labels{"voice": c.voiceID, "status": "success"}).Inc()
	ttsRequestDuration.With(prometheus.Labels{"voice": c.voiceID}).Observe(duration.Seconds())
	log.Info("TTS audio synthesized",
		zap.Duration("duration", duration),
		zap.Int("audio_bytes", len(bodyBytes)))

	return bodyBytes, nil
}
