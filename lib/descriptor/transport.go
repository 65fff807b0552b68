// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// TransportOptions configures StandardTransports.
type TransportOptions struct {
	// UserAgent is sent with HTTP requests.
	UserAgent string

	// HTTPClient overrides the HTTP client. Nil uses a client with
	// sensible dial and TLS timeouts.
	HTTPClient *http.Client

	S3   S3Transport
	SFTP SFTPTransport
}

// StandardTransports returns transports for http, https, ftp, sftp,
// and s3.
func StandardTransports(options TransportOptions) map[string]Transport {
	client := options.HTTPClient
	if client == nil {
		client = &http.Client{Transport: newHTTPTransport()}
	}
	httpTransport := HTTPTransport{Client: client, UserAgent: options.UserAgent}
	return map[string]Transport{
		"http":  httpTransport,
		"https": httpTransport,
		"ftp":   FTPTransport{},
		"sftp":  options.SFTP,
		"s3":    options.S3,
	}
}

func newHTTPTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// HTTPTransport downloads with GET. Any status outside 2xx is a
// failure.
type HTTPTransport struct {
	Client    *http.Client
	UserAgent string
}

func (t HTTPTransport) Download(ctx context.Context, location *url.URL, destination io.Writer) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, location.String(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if t.UserAgent != "" {
		request.Header.Set("User-Agent", t.UserAgent)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("GET %s: %s", location.Redacted(), response.Status)
	}
	if _, err := io.Copy(destination, response.Body); err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return nil
}

// FTPTransport downloads with RETR. Credentials come from the URL;
// without them the anonymous login is used.
type FTPTransport struct{}

func (FTPTransport) Download(ctx context.Context, location *url.URL, destination io.Writer) error {
	address := location.Host
	if location.Port() == "" {
		address = net.JoinHostPort(location.Hostname(), "21")
	}

	conn, err := ftp.Dial(address, ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	defer conn.Quit()
	stop := context.AfterFunc(ctx, func() { conn.Quit() })
	defer stop()

	user, password := "anonymous", "anonymous"
	if location.User != nil {
		user = location.User.Username()
		if secret, ok := location.User.Password(); ok {
			password = secret
		}
	}
	if err := conn.Login(user, password); err != nil {
		return fmt.Errorf("logging in to %s as %s: %w", address, user, err)
	}

	response, err := conn.Retr(location.Path)
	if err != nil {
		return fmt.Errorf("retrieving %s: %w", location.Path, err)
	}
	defer response.Close()

	if _, err := io.Copy(destination, response); err != nil {
		return fmt.Errorf("reading %s: %w", location.Path, err)
	}
	return nil
}

// SFTPTransport downloads over SSH. The server's host key must appear
// in KnownHostsFile. Authentication tries, in order: the URL password,
// IdentityFile, and the SSH agent at AgentSocket.
type SFTPTransport struct {
	KnownHostsFile string
	IdentityFile   string
	AgentSocket    string
}

func (t SFTPTransport) Download(ctx context.Context, location *url.URL, destination io.Writer) error {
	if t.KnownHostsFile == "" {
		return fmt.Errorf("sftp locations require sftp.known_hosts")
	}
	if location.User == nil || location.User.Username() == "" {
		return fmt.Errorf("sftp location %s has no user", location.Redacted())
	}
	hostKeyCallback, err := knownhosts.New(t.KnownHostsFile)
	if err != nil {
		return fmt.Errorf("loading known hosts: %w", err)
	}
	auth, closeAgent, err := t.authMethods(location)
	if err != nil {
		return err
	}
	defer closeAgent()

	address := location.Host
	if location.Port() == "" {
		address = net.JoinHostPort(location.Hostname(), "22")
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	clientConn, channels, requests, err := ssh.NewClientConn(conn, address, &ssh.ClientConfig{
		User:            location.User.Username(),
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", address, err)
	}
	client := ssh.NewClient(clientConn, channels, requests)
	defer client.Close()
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("starting sftp: %w", err)
	}
	defer sftpClient.Close()

	file, err := sftpClient.Open(location.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", location.Path, err)
	}
	defer file.Close()

	if _, err := io.Copy(destination, file); err != nil {
		return fmt.Errorf("reading %s: %w", location.Path, err)
	}
	return nil
}

func (t SFTPTransport) authMethods(location *url.URL) ([]ssh.AuthMethod, func(), error) {
	var methods []ssh.AuthMethod
	closeAgent := func() {}

	if password, ok := location.User.Password(); ok {
		methods = append(methods, ssh.Password(password))
	}
	if t.IdentityFile != "" {
		key, err := os.ReadFile(t.IdentityFile)
		if err != nil {
			return nil, closeAgent, fmt.Errorf("reading sftp identity: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, closeAgent, fmt.Errorf("parsing sftp identity: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if t.AgentSocket != "" {
		if conn, err := net.Dial("unix", t.AgentSocket); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closeAgent = func() { conn.Close() }
		}
	}
	if len(methods) == 0 {
		return nil, closeAgent, fmt.Errorf("no sftp credentials: set a password in the URL, sftp.identity_file, or run an ssh agent")
	}
	return methods, closeAgent, nil
}

// S3Transport downloads s3://bucket/key locations from Endpoint. Empty
// keys mean anonymous access.
type S3Transport struct {
	Endpoint  string
	Region    string
	Secure    bool
	AccessKey string
	SecretKey string
}

func (t S3Transport) Download(ctx context.Context, location *url.URL, destination io.Writer) error {
	bucket := location.Host
	key := trimLeadingSlash(location.Path)
	if bucket == "" || key == "" {
		return fmt.Errorf("s3 location must be s3://bucket/key, got %s", location.Redacted())
	}

	client, err := minio.New(t.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(t.AccessKey, t.SecretKey, ""),
		Secure:    t.Secure,
		Region:    t.Region,
		Transport: newHTTPTransport(),
	})
	if err != nil {
		return fmt.Errorf("creating s3 client for %s: %w", t.Endpoint, err)
	}

	object, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	defer object.Close()

	if _, err := io.Copy(destination, object); err != nil {
		return fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func trimLeadingSlash(value string) string {
	for len(value) > 0 && value[0] == '/' {
		value = value[1:]
	}
	return value
}
