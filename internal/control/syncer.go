package control

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"
)

// transfer is the part of *SSH a sync needs.
type transfer interface {
	Push(localPath, remotePath string, ignore *remote.IgnoreMatcher) error
	Pull(remotePath, localPath string, ignore *remote.IgnoreMatcher) error
	Close() error
}

// SFTPSyncer mirrors volumes over SFTP. It stands in for rsync on
// machines where the rsync binary is missing.
type SFTPSyncer struct {
	Config SSHConfig
	Ignore *remote.IgnoreMatcher
	Out    io.Writer

	// connect defaults to NewSSH.
	connect func(host string, config SSHConfig) (transfer, error)
}

func dialSSH(host string, config SSHConfig) (transfer, error) {
	return NewSSH(host, config)
}

func (s *SFTPSyncer) Sync(ctx context.Context, host string, v remote.Volume, dir remote.Direction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := s.Out
	if out == nil {
		out = os.Stderr
	}
	target := remote.Target(s.Config.User, host) + ":" + v.Remote
	if dir == remote.Push {
		fmt.Fprintf(out, "SFTP: %s -> %s\n", v.Local, target)
	} else {
		fmt.Fprintf(out, "SFTP: %s -> %s\n", target, v.Local)
	}

	connect := s.connect
	if connect == nil {
		connect = dialSSH
	}
	conn, err := connect(host, s.Config)
	if err != nil {
		return err
	}
	defer safeClose("SSH connection", conn.Close)

	if dir == remote.Push {
		return conn.Push(v.Local, v.Remote, s.Ignore)
	}
	return conn.Pull(v.Remote, v.Local, s.Ignore)
}
