package control

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

const DefaultDialTimeout = 15 * time.Second

// DefaultKeyFiles are tried, relative to ~/.ssh, when no agent holds a usable key.
var DefaultKeyFiles = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// SSH is an open SSH connection with an SFTP session on top.
type SSH struct {
	client     *ssh.Client
	sftpClient *sftp.Client
	host       string
	user       string
}

// safeClose safely closes a resource and logs any errors
func safeClose(name string, closer func() error) {
	if err := closer(); err != nil {
		logging.Logger().Warn("failed to close resource",
			zap.String("resource", name),
			zap.Error(err))
	}
}

// SSHConfig holds configuration for SSH connection
type SSHConfig struct {
	User    string
	Timeout time.Duration
	// KeyFiles overrides DefaultKeyFiles; absolute paths.
	KeyFiles []string
}

// NewSSH connects to host:22 and opens an SFTP session.
func NewSSH(host string, config SSHConfig) (*SSH, error) {
	if config.User == "" {
		config.User = remote.DefaultUser
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDialTimeout
	}

	auth, closeAgent := authMethods(config.KeyFiles)
	defer closeAgent()
	if len(auth) == 0 {
		return nil, errors.New("no SSH credentials found: start ssh-agent or create ~/.ssh/id_ed25519")
	}

	clientConfig := &ssh.ClientConfig{
		User: config.User,
		Auth: auth,
		// Instances are ephemeral and their host keys are never recorded.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         config.Timeout,
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(host, "22"), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	logging.Logger().Debug("SSH connection established",
		zap.String("user", config.User),
		zap.String("host", host))

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		safeClose("SSH client", client.Close)
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	return &SSH{
		client:     client,
		sftpClient: sftpClient,
		host:       host,
		user:       config.User,
	}, nil
}

// Close closes the SFTP and SSH connections
func (s *SSH) Close() error {
	if s.sftpClient != nil {
		safeClose("SFTP client", s.sftpClient.Close)
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Push mirrors localPath onto remotePath.
func (s *SSH) Push(localPath, remotePath string, ignore *remote.IgnoreMatcher) error {
	st, err := mirror(localFS{}, sftpFS{s.sftpClient}, localPath, remoteRelative(remotePath), ignore)
	if err != nil {
		return err
	}
	s.logStats("pushed", localPath, remotePath, st)
	return nil
}

// Pull mirrors remotePath onto localPath.
func (s *SSH) Pull(remotePath, localPath string, ignore *remote.IgnoreMatcher) error {
	st, err := mirror(sftpFS{s.sftpClient}, localFS{}, remoteRelative(remotePath), localPath, ignore)
	if err != nil {
		return err
	}
	s.logStats("pulled", remotePath, localPath, st)
	return nil
}

func (s *SSH) logStats(verb, from, to string, st stats) {
	logging.Logger().Info("volume "+verb+" using SFTP",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("host", s.host),
		zap.Int64("files_copied", st.filesCopied),
		zap.Int64("dirs_created", st.dirsCreated),
		zap.Int64("removed", st.removed),
		zap.Int64("total_bytes", st.totalBytes))
}

// remoteRelative maps "~/x" to "x": SFTP resolves relative paths against
// the login directory and does not expand '~'.
func remoteRelative(p string) string {
	switch {
	case p == "~":
		return "."
	case strings.HasPrefix(p, "~/"):
		return strings.TrimPrefix(p, "~/")
	}
	return p
}

// authMethods collects agent keys and readable unencrypted key files. The
// returned func releases the agent connection.
func authMethods(keyFiles []string) ([]ssh.AuthMethod, func()) {
	var methods []ssh.AuthMethod
	closer := func() {}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closer = func() { safeClose("ssh-agent", conn.Close) }
		} else {
			logging.Logger().Debug("ssh-agent not reachable", zap.Error(err))
		}
	}

	if len(keyFiles) == 0 {
		if home, err := os.UserHomeDir(); err == nil {
			for _, name := range DefaultKeyFiles {
				keyFiles = append(keyFiles, filepath.Join(home, ".ssh", name))
			}
		}
	}

	var signers []ssh.Signer
	for _, path := range keyFiles {
		signer, err := loadPrivateKeyFromFile(path)
		if err != nil {
			logging.Logger().Debug("skipping private key",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	return methods, closer
}

// parsePrivateKey parses SSH private key from PEM-encoded string
func parsePrivateKey(privateKeyPEM string) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return signer, nil
}

// loadPrivateKeyFromFile loads SSH private key from file
func loadPrivateKeyFromFile(privateKeyPath string) (ssh.Signer, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return parsePrivateKey(string(keyBytes))
}
