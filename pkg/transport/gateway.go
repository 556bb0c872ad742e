// Package transport is the gateway to the request/response backend and the
// automation webhook. Every call is a single attempt bounded by a timeout;
// retrying and falling back are decided by the caller.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

const maxBodyBytes = 10 << 20

// CredentialSource supplies the bearer token for backend calls.
type CredentialSource interface {
	Token() string
}

// Recorder observes the outcome of every call.
type Recorder interface {
	ObserveRequest(op string, outcome Outcome, elapsed time.Duration)
}

// Options configures a Gateway.
type Options struct {
	BackendURL  string
	WebhookURL  string
	Timeout     time.Duration
	Credentials CredentialSource
	HTTPClient  *http.Client
	UserAgent   string
	Logger      *logrus.Entry
	Recorder    Recorder
}

// Gateway talks to the backend and the webhook.
type Gateway struct {
	backendURL string
	webhookURL string
	timeout    time.Duration
	creds      CredentialSource
	httpClient *http.Client
	userAgent  string
	logger     *logrus.Entry
	recorder   Recorder
}

// UploadResult is returned by UploadScript.
type UploadResult struct {
	SessionID string `json:"sessionId"`
}

// FrameAnalysis is what the backend may answer to a frame submission.
type FrameAnalysis struct {
	Metrics   *models.CoachingMetrics `json:"metrics,omitempty"`
	Landmarks []models.FacialLandmark `json:"landmarks,omitempty"`
}

// PosterStatus is the backend view of a poster job.
type PosterStatus struct {
	Status       string                   `json:"status"`
	Progress     float64                  `json:"progress"`
	ImageURL     string                   `json:"imageUrl,omitempty"`
	ThumbnailURL string                   `json:"thumbnailUrl,omitempty"`
	Variations   []models.PosterVariation `json:"variations,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

// Done reports whether the job reached a final state.
func (s PosterStatus) Done() bool {
	return s.Status == string(models.StatusCompleted) || s.Status == string(models.StatusError)
}

type endpoint int

const (
	backend endpoint = iota
	webhook
)

// New creates a Gateway.
func New(opts Options) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Gateway{
		backendURL: strings.TrimRight(opts.BackendURL, "/"),
		webhookURL: strings.TrimRight(opts.WebhookURL, "/"),
		timeout:    opts.Timeout,
		creds:      opts.Credentials,
		httpClient: opts.HTTPClient,
		userAgent:  opts.UserAgent,
		logger:     opts.Logger,
		recorder:   opts.Recorder,
	}
}

// UploadScript sends a script file to the backend and returns the session id.
func (g *Gateway) UploadScript(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("script", filename)
	if err != nil {
		return UploadResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to build upload")
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to read script")
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to build upload")
	}

	var res UploadResult
	err = g.do(ctx, "upload_script", backend, http.MethodPost, "/script/upload", &buf, mw.FormDataContentType(), &res)
	if err != nil {
		return UploadResult{}, err
	}
	if res.SessionID == "" {
		return UploadResult{}, errors.RemoteError("upload_script", http.StatusOK, "response has no session id")
	}
	return res, nil
}

// AnalyzeScript triggers analysis of an uploaded script on the webhook.
func (g *Gateway) AnalyzeScript(ctx context.Context, sessionID string) error {
	return g.postJSON(ctx, "analyze_script", webhook, "/analyze-script", map[string]string{"sessionId": sessionID}, nil)
}

// StartCoaching opens a coaching session on the backend.
func (g *Gateway) StartCoaching(ctx context.Context, sceneText string) (string, error) {
	var res struct {
		SessionID string `json:"sessionId"`
	}
	if err := g.postJSON(ctx, "start_coaching", backend, "/coaching/start", map[string]string{"sceneText": sceneText}, &res); err != nil {
		return "", err
	}
	if res.SessionID == "" {
		return "", errors.RemoteError("start_coaching", http.StatusOK, "response has no session id")
	}
	return res.SessionID, nil
}

// SubmitFrame sends one captured frame for analysis.
func (g *Gateway) SubmitFrame(ctx context.Context, sessionID string, frame *models.Frame) (FrameAnalysis, error) {
	body := struct {
		Frame     string `json:"frame"`
		Timestamp int64  `json:"timestamp"`
	}{
		Frame:     frame.DataURL(),
		Timestamp: frame.Timestamp.UnixMilli(),
	}
	var res FrameAnalysis
	err := g.postJSON(ctx, "submit_frame", backend, "/coaching/"+url.PathEscape(sessionID)+"/frame", body, &res)
	return res, err
}

// StopCoaching closes a coaching session on the backend.
func (g *Gateway) StopCoaching(ctx context.Context, sessionID string) error {
	return g.do(ctx, "stop_coaching", backend, http.MethodPost, "/coaching/"+url.PathEscape(sessionID)+"/stop", nil, "", nil)
}

// GeneratePoster asks the webhook to generate a poster and returns its id.
// An empty id means the webhook accepted the request without tracking it.
func (g *Gateway) GeneratePoster(ctx context.Context, req models.PosterRequest) (string, error) {
	var res struct {
		PosterID string `json:"posterId"`
	}
	if err := g.postJSON(ctx, "generate_poster", webhook, "/generate-poster", req, &res); err != nil {
		return "", err
	}
	return res.PosterID, nil
}

// PosterStatus polls the backend for a poster job.
func (g *Gateway) PosterStatus(ctx context.Context, posterID string) (PosterStatus, error) {
	var res PosterStatus
	err := g.do(ctx, "poster_status", backend, http.MethodGet, "/poster/"+url.PathEscape(posterID)+"/status", nil, "", &res)
	return res, err
}

// Health reports whether the backend answers its health check with a 2xx.
func (g *Gateway) Health(ctx context.Context) bool {
	start := time.Now()
	status, _, err := g.roundTrip(ctx, "health", backend, http.MethodGet, "/health", nil, "")
	if err == nil && (status < 200 || status > 299) {
		err = errors.RemoteError("health", status, "")
	}
	if g.recorder != nil {
		g.recorder.ObserveRequest("health", OutcomeOf(err), time.Since(start))
	}
	entry := g.logger.WithField("online", err == nil)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("Backend health checked")
	return err == nil
}

func (g *Gateway) postJSON(ctx context.Context, op string, ep endpoint, path string, in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode request").WithDetail("op", op)
	}
	return g.do(ctx, op, ep, http.MethodPost, path, bytes.NewReader(data), "application/json", out)
}

// do performs one attempt and decodes the envelope's data into out.
func (g *Gateway) do(ctx context.Context, op string, ep endpoint, method, path string, body io.Reader, contentType string, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if g.recorder != nil {
			g.recorder.ObserveRequest(op, OutcomeOf(err), time.Since(start))
		}
	}()

	status, raw, err := g.roundTrip(ctx, op, ep, method, path, body, contentType)
	if err != nil {
		return err
	}

	var env models.Envelope[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &env)

	if status < 200 || status > 299 {
		msg := ""
		if decodeErr == nil {
			msg = env.Reason()
		}
		return errors.RemoteError(op, status, msg)
	}
	if decodeErr != nil {
		return errors.RemoteError(op, status, fmt.Sprintf("undecodable response: %v", decodeErr))
	}
	if !env.Success {
		reason := env.Reason()
		if reason == "" {
			reason = "request was not successful"
		}
		return errors.RemoteError(op, status, reason)
	}

	if out != nil && env.Data != nil && len(*env.Data) > 0 && string(*env.Data) != "null" {
		if err := json.Unmarshal(*env.Data, out); err != nil {
			return errors.RemoteError(op, status, fmt.Sprintf("undecodable data: %v", err))
		}
	}
	g.logger.WithFields(logrus.Fields{"op": op, "status": status}).Debug("Remote call succeeded")
	return nil
}

// roundTrip sends the request and reads the body. Only transport failures
// are returned as errors; any HTTP status is a completed round trip.
func (g *Gateway) roundTrip(ctx context.Context, op string, ep endpoint, method, path string, body io.Reader, contentType string) (int, []byte, error) {
	base := g.backendURL
	if ep == webhook {
		base = g.webhookURL
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, base+path, body)
	if err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create request").WithDetail("op", op)
	}
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	if ep == backend && g.creds != nil {
		if token := g.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, nil, classify(ctx, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, classify(ctx, op, err)
	}
	return resp.StatusCode, raw, nil
}
