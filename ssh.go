package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"supportdesk/render"
)

const sshPrompt = "> "

// lineTerminal is the part of *term.Terminal the chat loop drives
type lineTerminal interface {
	io.Writer
	ReadLine() (string, error)
}

// sshServer accepts anonymous SSH connections and runs one chat session per
// connection
type sshServer struct {
	app    *supportApp
	config *ssh.ServerConfig
	wg     sync.WaitGroup
}

func newSSHServer(app *supportApp) (*sshServer, error) {
	signer, err := loadHostKey(os.Getenv("SSH_HOST_KEY"))
	if err != nil {
		return nil, err
	}

	config := &ssh.ServerConfig{
		NoClientAuth:  true,
		ServerVersion: "SSH-2.0-supportdesk",
	}
	config.AddHostKey(signer)
	return &sshServer{app: app, config: config}, nil
}

// loadHostKey reads a PEM host key from path. A missing file is created with
// a fresh ed25519 key; an empty path yields an ephemeral key.
func loadHostKey(path string) (ssh.Signer, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return ssh.ParsePrivateKey(data)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read host key: %w", err)
		}
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}

	if path != "" {
		block, err := ssh.MarshalPrivateKey(priv, "supportdesk host key")
		if err != nil {
			return nil, fmt.Errorf("failed to encode host key: %w", err)
		}
		if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write host key: %w", err)
		}
		log.Printf("[SSH] Generated new host key at %s", path)
	} else {
		log.Println("[SSH] SSH_HOST_KEY not set, using an ephemeral host key")
	}

	return ssh.NewSignerFromKey(priv)
}

// Serve accepts connections until ctx is cancelled or the listener fails,
// then waits for open connections to finish
func (s *sshServer) Serve(ctx context.Context, ln net.Listener) error {
	log.Printf("[SSH] SSH server listening on %s", ln.Addr())

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *sshServer) handleConn(ctx context.Context, nConn net.Conn) {
	defer nConn.Close()

	conn, chans, reqs, err := ssh.NewServerConn(nConn, s.config)
	if err != nil {
		if debugMode {
			log.Printf("[SSH] Handshake failed from %s: %v", nConn.RemoteAddr(), err)
		}
		return
	}
	defer conn.Close()

	// Close the connection when the server shuts down so blocked reads return
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	beacon("ssh_connect", map[string]interface{}{
		"remote_addr":    conn.RemoteAddr().String(),
		"client_version": string(conn.ClientVersion()),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ssh.DiscardRequests(reqs)
	}()

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			log.Printf("[SSH] Could not accept channel: %v", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleChannel(ctx, channel, requests)
		}()
	}
	wg.Wait()
}

// ptyRequest is the payload of a "pty-req" channel request (RFC 4254 6.2)
type ptyRequest struct {
	Term     string
	Columns  uint32
	Rows     uint32
	Width    uint32
	Height   uint32
	Modelist string
}

func (s *sshServer) handleChannel(ctx context.Context, channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	style, width := "notty", 80
	for req := range requests {
		switch req.Type {
		case "pty-req":
			var pty ptyRequest
			if err := ssh.Unmarshal(req.Payload, &pty); err == nil {
				style = "dark"
				if pty.Columns > 0 {
					width = int(pty.Columns)
				}
			}
			req.Reply(true, nil)
		case "env":
			req.Reply(true, nil)
		case "shell":
			req.Reply(true, nil)
			go ssh.DiscardRequests(requests)

			out, err := render.NewTerminal(channel, style, width)
			if err != nil {
				log.Printf("[SSH] Failed to create renderer: %v", err)
				return
			}
			s.app.sshChatLoop(ctx, term.NewTerminal(channel, sshPrompt), out)
			channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
			return
		default:
			req.Reply(false, nil)
		}
	}
}

// sshChatLoop runs one conversation on a terminal until the client leaves.
// The session lives exactly as long as the loop.
func (app *supportApp) sshChatLoop(ctx context.Context, t lineTerminal, out *render.Terminal) {
	sess := app.sessions.Create()
	defer func() { app.sessions.End(sess.ID) }()

	fmt.Fprintf(t, "%s\n%s\n", render.PageTitle, render.StatusLine)
	fmt.Fprintf(t, "Type your support request, /history to review, /reset to start over, /quit to leave.\n\n")

	for {
		line, err := t.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Printf("[SSH] Read failed: %v", err)
			}
			return
		}

		text := strings.TrimSpace(line)
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			fmt.Fprintln(t, "Goodbye.")
			return
		case "/history":
			fmt.Fprint(t, out.Transcript(sess.Transcript.All()))
			continue
		case "/reset":
			app.sessions.End(sess.ID)
			sess = app.sessions.Create()
			fmt.Fprintln(t, "Started a new conversation.")
			continue
		}

		fmt.Fprintln(t, "Processing...")
		result := app.handleTurn(ctx, surfaceSSH, sess, text)
		fmt.Fprint(t, out.Turn(result.Assistant))
		fmt.Fprintln(t)
	}
}
