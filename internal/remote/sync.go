package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"go.uber.org/zap"
)

// Direction of a volume sync.
type Direction int

const (
	Push Direction = iota
	Pull
)

func (d Direction) String() string {
	if d == Pull {
		return "pull"
	}
	return "push"
}

// Syncer mirrors a volume between the local machine and host. The
// destination ends up identical to the source, extraneous files removed.
type Syncer interface {
	Sync(ctx context.Context, host string, v Volume, dir Direction) error
}

// RsyncSyncer mirrors volumes with the rsync binary.
type RsyncSyncer struct {
	Commander  Commander
	User       string
	IgnoreArgs []string
	// Out receives the "Rsync: ..." progress lines.
	Out io.Writer
}

func (s *RsyncSyncer) Sync(ctx context.Context, host string, v Volume, dir Direction) error {
	local, remote := v.Local, v.Remote
	// A directory source gets a trailing slash so its contents land on
	// the destination path rather than in a nested directory.
	if isDir(v.Local) {
		if dir == Push {
			local = withSlash(local)
		} else {
			remote = withSlash(remote)
		}
	}

	argv := RsyncArgs(s.User, host, local, remote, RsyncOptions{
		Reverse:    dir == Pull,
		Mirror:     true,
		IgnoreArgs: s.IgnoreArgs,
	})
	fmt.Fprintf(orDefault[io.Writer](s.Out, os.Stderr), "Rsync: %s\n", strings.Join(argv, " "))

	logging.Logger().Debug("syncing volume",
		zap.String("volume", v.String()),
		zap.String("direction", dir.String()),
		zap.String("host", host))

	code, err := s.Commander.Run(ctx, argv)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Command: "rsync", Code: code}
	}
	return nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
