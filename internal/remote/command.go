package remote

import (
	"strings"
)

// DefaultUser is the login user on provider images.
const DefaultUser = "ubuntu"

// Hosts are ephemeral: accept unseen keys and never persist them.
var sshOptions = []string{
	"-o", "StrictHostKeyChecking=accept-new",
	"-o", "UserKnownHostsFile=/dev/null",
}

// RsyncShell is the remote shell rsync is told to use.
var RsyncShell = "ssh " + strings.Join(sshOptions, " ")

// Target returns user@host.
func Target(user, host string) string {
	if user == "" {
		user = DefaultUser
	}
	return user + "@" + host
}

// SSHArgs builds the ssh argv. With a command, env assignments are
// prefixed and everything is joined by single spaces into one remote
// command string; without one the session is interactive.
func SSHArgs(user, host string, command []string, env []string) []string {
	argv := make([]string, 0, len(sshOptions)+3)
	argv = append(argv, "ssh")
	argv = append(argv, sshOptions...)
	argv = append(argv, Target(user, host))
	if len(command) == 0 {
		return argv
	}

	parts := make([]string, 0, len(env)+len(command))
	parts = append(parts, env...)
	parts = append(parts, command...)
	return append(argv, strings.Join(parts, " "))
}

// RsyncOptions tune a single rsync invocation.
type RsyncOptions struct {
	// Reverse copies remote to local.
	Reverse bool
	// Mirror deletes destination files that are absent at the source.
	Mirror bool
	// IgnoreArgs is usually IgnoreArgs(FindIgnoreFile(cwd)).
	IgnoreArgs []string
	Extra      []string
}

// RsyncArgs builds an rsync argv between local and user@host:remote.
func RsyncArgs(user, host, local, remote string, opts RsyncOptions) []string {
	remoteSpec := Target(user, host) + ":" + remote
	src, dst := local, remoteSpec
	if opts.Reverse {
		src, dst = remoteSpec, local
	}

	argv := []string{"rsync", "-e", RsyncShell, "-az"}
	if opts.Mirror {
		argv = append(argv, "--delete")
	}
	argv = append(argv, opts.IgnoreArgs...)
	argv = append(argv, opts.Extra...)
	return append(argv, src, dst)
}

// shellQuote single-quotes s unless it is made only of characters a POSIX
// shell passes through unchanged.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:,@%+=", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
