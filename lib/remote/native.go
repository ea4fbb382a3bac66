// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/bureau-foundation/gpuwatch/lib/hostlist"
)

// defaultIdentityFiles are tried, in order, when a host block names no
// IdentityFile. Missing files are skipped.
var defaultIdentityFiles = []string{"~/.ssh/id_ed25519", "~/.ssh/id_ecdsa", "~/.ssh/id_rsa"}

// NativeOptions configures a [NativeExecutor].
type NativeOptions struct {
	// ConfigFile is the OpenSSH client config used to resolve host
	// aliases. Empty disables alias resolution: the host string is
	// dialed as-is on port 22.
	ConfigFile string

	// KnownHostsFile is the known_hosts file used to verify server
	// keys. Required unless InsecureIgnoreHostKey is set.
	KnownHostsFile string

	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool

	// User is the login name used when the config names none.
	// Defaults to $USER.
	User string

	Logger *slog.Logger
}

// NativeExecutor runs commands over connections made with
// golang.org/x/crypto/ssh. Every Execute dials a fresh connection and
// closes it before returning; nothing is pooled between calls.
type NativeExecutor struct {
	config          *ssh_config.Config
	hostKeyCallback ssh.HostKeyCallback
	defaultUser     string
	homeDirectory   string
	logger          *slog.Logger

	// lookupKey is a throwaway key offered to the known_hosts callback
	// to list the keys it holds for an address. Nil when host keys are
	// not verified.
	lookupKey ssh.PublicKey
}

// NewNativeExecutor parses the client config and known_hosts file once
// and returns an executor ready for concurrent use.
func NewNativeExecutor(options NativeOptions) (*NativeExecutor, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	executor := &NativeExecutor{
		defaultUser: options.User,
		logger:      logger,
	}
	executor.homeDirectory, _ = os.UserHomeDir()
	if executor.defaultUser == "" {
		executor.defaultUser = os.Getenv("USER")
	}

	if options.ConfigFile != "" {
		file, err := os.Open(options.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("opening ssh config: %w", err)
		}
		defer file.Close()
		executor.config, err = hostlist.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", options.ConfigFile, err)
		}
	}

	switch {
	case options.InsecureIgnoreHostKey:
		logger.Warn("SSH host key verification is disabled; connections are not authenticated")
		executor.hostKeyCallback = ssh.InsecureIgnoreHostKey()
	case options.KnownHostsFile != "":
		callback, err := knownhosts.New(options.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("loading known_hosts %s: %w", options.KnownHostsFile, err)
		}
		executor.hostKeyCallback = callback
		public, _, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generating lookup key: %w", err)
		}
		executor.lookupKey, err = ssh.NewPublicKey(public)
		if err != nil {
			return nil, fmt.Errorf("generating lookup key: %w", err)
		}
	default:
		return nil, errors.New("no host key verification configured: set a known_hosts file or disable verification explicitly")
	}

	return executor, nil
}

// endpoint is a host alias resolved through the client config.
type endpoint struct {
	address       string
	user          string
	identityFiles []string
}

// resolve looks up HostName, Port, User, and IdentityFile for alias.
// Lookup errors fall back to the alias itself rather than failing:
// a host that is not in the config is dialed directly.
func (e *NativeExecutor) resolve(alias string) endpoint {
	hostname, port, user := alias, "22", e.defaultUser
	var identityFiles []string

	if e.config != nil {
		if value, err := e.config.Get(alias, "HostName"); err == nil && value != "" {
			hostname = strings.ReplaceAll(value, "%h", alias)
		}
		if value, err := e.config.Get(alias, "Port"); err == nil && value != "" {
			port = value
		}
		if value, err := e.config.Get(alias, "User"); err == nil && value != "" {
			user = value
		}
		if values, err := e.config.GetAll(alias, "IdentityFile"); err == nil {
			identityFiles = values
		}
	}
	if len(identityFiles) == 0 {
		identityFiles = defaultIdentityFiles
	}

	expanded := make([]string, 0, len(identityFiles))
	for _, path := range identityFiles {
		expanded = append(expanded, e.expandHome(path))
	}

	return endpoint{
		address:       net.JoinHostPort(hostname, port),
		user:          user,
		identityFiles: expanded,
	}
}

func (e *NativeExecutor) expandHome(path string) string {
	if path == "~" {
		return e.homeDirectory
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(e.homeDirectory, path[2:])
	}
	return path
}

// authMethods collects the SSH agent (when SSH_AUTH_SOCK is set) and
// every readable, unencrypted identity file. The returned closer
// releases the agent connection.
func (e *NativeExecutor) authMethods(target endpoint) ([]ssh.AuthMethod, func(), error) {
	var methods []ssh.AuthMethod
	closer := func() {}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		connection, err := net.Dial("unix", socket)
		if err != nil {
			e.logger.Debug("ssh agent unavailable", "socket", socket, "error", err)
		} else {
			closer = func() { connection.Close() }
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(connection).Signers))
		}
	}

	var signers []ssh.Signer
	for _, path := range target.identityFiles {
		key, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			e.logger.Debug("skipping identity file", "path", path, "error", err)
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if len(methods) == 0 {
		closer()
		return nil, nil, errors.New("no SSH authentication methods available (no agent, no usable identity files)")
	}
	return methods, closer, nil
}

// hostKeyAlgorithms returns the algorithms matching the key types
// known_hosts records for address, so the server presents a key the
// file can verify. Nil leaves the library default in place.
func (e *NativeExecutor) hostKeyAlgorithms(address string, remote net.Addr) []string {
	if e.lookupKey == nil {
		return nil
	}
	var keyError *knownhosts.KeyError
	if !errors.As(e.hostKeyCallback(address, remote, e.lookupKey), &keyError) {
		return nil
	}

	var algorithms []string
	seen := make(map[string]bool)
	for _, known := range keyError.Want {
		candidates := []string{known.Key.Type()}
		if known.Key.Type() == ssh.KeyAlgoRSA {
			candidates = []string{ssh.KeyAlgoRSASHA512, ssh.KeyAlgoRSASHA256, ssh.KeyAlgoRSA}
		}
		for _, algorithm := range candidates {
			if !seen[algorithm] {
				seen[algorithm] = true
				algorithms = append(algorithms, algorithm)
			}
		}
	}
	return algorithms
}

// Execute implements [Executor].
func (e *NativeExecutor) Execute(ctx context.Context, host, command string, timeout time.Duration) (string, error) {
	callContext, cancel := withTimeout(ctx, timeout)
	defer cancel()

	target := e.resolve(host)
	methods, closeAuth, err := e.authMethods(target)
	if err != nil {
		return "", fmt.Errorf("%s: %w", host, err)
	}
	defer closeAuth()

	var dialer net.Dialer
	connection, err := dialer.DialContext(callContext, "tcp", target.address)
	if err != nil {
		if callContext.Err() != nil {
			return "", classify(callContext, host, timeout, err)
		}
		return "", fmt.Errorf("dialing %s (%s): %w", host, target.address, err)
	}
	// Closing the raw connection unblocks the handshake and any
	// in-flight session read when the deadline passes.
	stop := context.AfterFunc(callContext, func() { connection.Close() })
	defer stop()

	clientConnection, channels, requests, err := ssh.NewClientConn(connection, target.address, &ssh.ClientConfig{
		User:              target.user,
		Auth:              methods,
		HostKeyCallback:   e.hostKeyCallback,
		HostKeyAlgorithms: e.hostKeyAlgorithms(target.address, connection.RemoteAddr()),
	})
	if err != nil {
		connection.Close()
		if callContext.Err() != nil {
			return "", classify(callContext, host, timeout, err)
		}
		return "", fmt.Errorf("ssh handshake with %s: %w", host, err)
	}
	client := ssh.NewClient(clientConnection, channels, requests)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		if callContext.Err() != nil {
			return "", classify(callContext, host, timeout, err)
		}
		return "", fmt.Errorf("opening session on %s: %w", host, err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(command)
	if err != nil {
		if callContext.Err() != nil {
			return "", classify(callContext, host, timeout, err)
		}
		var exitError *ssh.ExitError
		if errors.As(err, &exitError) {
			return "", &ExitError{Host: host, Code: exitError.ExitStatus()}
		}
		return "", fmt.Errorf("running command on %s: %w", host, err)
	}
	return string(output), nil
}
