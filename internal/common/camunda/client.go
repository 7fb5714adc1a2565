// internal/common/camunda/client.go
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"zencalcs-assistant/internal/common/errors"
)

// ReportProcessID is the BPMN process that analyzes a conversation and renders its report.
const ReportProcessID = "zencalcs-report"

// Client wraps the Zeebe gRPC client for the commands the assistant issues:
// process deployment, report process instances and report-generated messages.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig is used when ClientConfig.RetryConfig is nil.
var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientWithConfig dials the gateway and verifies it with a topology request.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout == 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{client: zeebeClient, config: config}, nil
}

// GetClient returns the raw Zeebe client for job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// withRetry runs a Zeebe command with exponential backoff. Only transient
// failures are retried; everything else is mapped on the first attempt.
func withRetry[T any](ctx context.Context, rc *RetryConfig, operation string, command func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := command(ctx)
		if err == nil {
			return result, nil
		}
		if !isTransient(err) || attempt == rc.MaxRetries {
			return zero, mapZeebeError(err, operation, attempt)
		}

		delay := rc.BaseDelay << attempt
		if delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, errors.NewWorkflowEngineUnavailableError(
				fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err()))
		}
	}
}

// isTransient classifies by gRPC status where the gateway returned one and
// by message otherwise (dial failures surface as plain errors).
func isTransient(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		default:
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"connection refused", "connection reset", "deadline exceeded", "unavailable", "broken pipe"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string, attempt int) error {
	wrapped := fmt.Errorf("zeebe %s failed after %d attempts: %w", operation, attempt+1, err)
	if isTransient(err) {
		return errors.NewWorkflowEngineUnavailableError(wrapped)
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.Unknown {
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "not found") && !strings.Contains(msg, "permission denied") &&
			!strings.Contains(msg, "already exists") && !strings.Contains(msg, "invalid") {
			return errors.NewWorkflowEngineUnavailableError(wrapped)
		}
	}
	return errors.NewWorkflowCommandRejectedError(wrapped)
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}

// DeployResources deploys BPMN files and returns the deployed process IDs.
func (c *Client) DeployResources(ctx context.Context, paths ...string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	return withRetry(ctx, c.config.RetryConfig, "deploy", func(ctx context.Context) ([]string, error) {
		ctx, cancel := c.requestContext(ctx)
		defer cancel()

		cmd := c.client.NewDeployResourceCommand().AddResourceFile(paths[0])
		for _, p := range paths[1:] {
			cmd = cmd.AddResourceFile(p)
		}
		resp, err := cmd.Send(ctx)
		if err != nil {
			return nil, err
		}
		var ids []string
		for _, d := range resp.GetDeployments() {
			if p := d.GetProcess(); p != nil {
				ids = append(ids, fmt.Sprintf("%s@v%d", p.GetBpmnProcessId(), p.GetVersion()))
			}
		}
		return ids, nil
	})
}

// StartReport creates an instance of the report process for a session and
// returns its key. The workers pick it up from there.
func (c *Client) StartReport(ctx context.Context, sessionID string, vars map[string]interface{}) (int64, error) {
	payload := make(map[string]interface{}, len(vars)+1)
	for k, v := range vars {
		payload[k] = v
	}
	payload["sessionId"] = sessionID

	return withRetry(ctx, c.config.RetryConfig, "start "+ReportProcessID, func(ctx context.Context) (int64, error) {
		ctx, cancel := c.requestContext(ctx)
		defer cancel()

		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(ReportProcessID).
			LatestVersion().
			VariablesFromMap(payload)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errNotRetryable, err)
		}
		resp, err := cmd.Send(ctx)
		if err != nil {
			return 0, err
		}
		return resp.GetProcessInstanceKey(), nil
	})
}

// PublishMessage publishes a correlated message with a one minute TTL.
func (c *Client) PublishMessage(ctx context.Context, name, correlationKey string, vars map[string]interface{}) error {
	_, err := withRetry(ctx, c.config.RetryConfig, "publish "+name, func(ctx context.Context) (struct{}, error) {
		ctx, cancel := c.requestContext(ctx)
		defer cancel()

		cmd, err := c.client.NewPublishMessageCommand().
			MessageName(name).
			CorrelationKey(correlationKey).
			TimeToLive(time.Minute).
			VariablesFromMap(vars)
		if err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", errNotRetryable, err)
		}
		_, err = cmd.Send(ctx)
		return struct{}{}, err
	})
	return err
}

// errNotRetryable marks client-side failures such as unserializable variables.
var errNotRetryable = stderrors.New("invalid command")

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
