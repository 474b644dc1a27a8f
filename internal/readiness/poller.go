package readiness

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	DefaultTimeout     = 600 * time.Second
	DefaultInterval    = 5 * time.Second
	DefaultDialTimeout = 5 * time.Second
	SSHPort            = "22"
)

// InstanceGetter re-fetches an instance record.
type InstanceGetter interface {
	GetInstance(ctx context.Context, id string) (*lambda.Result[lambda.Instance], error)
}

// DialFunc matches net.DialTimeout.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// Config bounds the two phases independently.
type Config struct {
	IPTimeout   time.Duration
	IPInterval  time.Duration
	SSHTimeout  time.Duration
	SSHInterval time.Duration
	DialTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		IPTimeout:   DefaultTimeout,
		IPInterval:  DefaultInterval,
		SSHTimeout:  DefaultTimeout,
		SSHInterval: DefaultInterval,
		DialTimeout: DefaultDialTimeout,
	}
}

// Poller waits for an instance to get an IP and then accept TCP
// connections on the SSH port.
type Poller struct {
	api   InstanceGetter
	cfg   Config
	clock clock.Clock
	dial  DialFunc
	out   io.Writer
}

type Option func(*Poller)

func WithClock(c clock.Clock) Option { return func(p *Poller) { p.clock = c } }

func WithDialer(d DialFunc) Option { return func(p *Poller) { p.dial = d } }

// WithOutput sets where progress lines go; stderr by default.
func WithOutput(w io.Writer) Option { return func(p *Poller) { p.out = w } }

func NewPoller(api InstanceGetter, cfg Config, opts ...Option) *Poller {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	p := &Poller{
		api:   api,
		cfg:   cfg,
		clock: clock.RealClock{},
		dial:  net.DialTimeout,
		out:   os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait runs both phases and returns the reachable IP. label is the
// id-or-name the user typed and only appears in messages.
func (p *Poller) Wait(ctx context.Context, inst lambda.Instance, label string) (string, error) {
	ip, err := p.WaitForIP(ctx, inst, label)
	if err != nil {
		return "", err
	}
	if err := p.WaitForSSH(ctx, inst.ID, ip, label); err != nil {
		return "", err
	}
	return ip, nil
}

// WaitForIP returns the instance IP, re-fetching the record until one is
// assigned or the IP timeout is spent. Non-2xx responses end the wait
// with a *lambda.StatusError.
func (p *Poller) WaitForIP(ctx context.Context, inst lambda.Instance, label string) (string, error) {
	if ip, ok := inst.GetIP(); ok {
		return ip, nil
	}

	started := p.clock.Now()
	deadline := started.Add(p.cfg.IPTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		res, err := p.api.GetInstance(ctx, inst.ID)
		if err != nil {
			return "", fmt.Errorf("failed to get instance %s: %w", inst.ID, err)
		}
		if err := res.Err(); err != nil {
			return "", err
		}
		if ip, ok := res.Data.GetIP(); ok {
			logging.Logger().Debug("instance IP acquired",
				zap.String("instance_id", inst.ID),
				zap.String("ip", ip),
				zap.Duration("elapsed", p.clock.Since(started)))
			return ip, nil
		}

		if !p.pause(deadline, p.cfg.IPInterval, "Waiting for IP on instance '%s' (%s)... retrying in %ds", label, inst.ID) {
			return "", &TimeoutError{
				Phase:   PhaseIP,
				Label:   label,
				ID:      inst.ID,
				Timeout: p.cfg.IPTimeout,
				Elapsed: p.clock.Since(started),
			}
		}
	}
}

// WaitForSSH dials ip:22 until a connection succeeds or the SSH timeout
// is spent.
func (p *Poller) WaitForSSH(ctx context.Context, id, ip, label string) error {
	address := net.JoinHostPort(ip, SSHPort)
	started := p.clock.Now()
	deadline := started.Add(p.cfg.SSHTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := p.dial("tcp", address, p.cfg.DialTimeout)
		if err == nil {
			if closeErr := conn.Close(); closeErr != nil {
				logging.Logger().Debug("failed to close connection test",
					zap.String("host", ip),
					zap.Error(closeErr))
			}
			return nil
		}
		logging.Logger().Debug("SSH port not reachable yet",
			zap.String("address", address),
			zap.Error(err))

		if !p.pause(deadline, p.cfg.SSHInterval, "Waiting for SSH on instance '%s' (%s)... retrying in %ds", label, ip) {
			return &TimeoutError{
				Phase:   PhaseSSH,
				Label:   label,
				ID:      id,
				Timeout: p.cfg.SSHTimeout,
				Elapsed: p.clock.Since(started),
			}
		}
	}
}

// pause sleeps min(interval, remaining) and reports whether budget is
// left for another attempt.
func (p *Poller) pause(deadline time.Time, interval time.Duration, format, label, target string) bool {
	remaining := deadline.Sub(p.clock.Now())
	if remaining <= 0 {
		return false
	}
	if interval <= 0 {
		interval = time.Second
	}
	wait := min(interval, remaining)

	fmt.Fprintf(p.out, format+"\n", label, target, int(wait.Seconds()))
	p.clock.Sleep(wait)

	return p.clock.Now().Before(deadline)
}
