package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"

	"supportdesk/agent"
	"supportdesk/session"
)

const (
	dnsDeadline    = 4 * time.Second // Safe middle ground for DNS clients
	dnsMaxResponse = 500
	dnsTXTChunk    = 255
)

// dnsZone is the suffix stripped from query names, e.g. "support.example.com"
func dnsZone() string {
	return strings.Trim(os.Getenv("DNS_ZONE"), ".")
}

// newDNSServer builds a UDP server answering TXT questions on port
func newDNSServer(port int, app *supportApp) *dns.Server {
	return &dns.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Net:     "udp",
		Handler: dns.HandlerFunc(app.handleDNS),
	}
}

// dnsQueryText turns a question name into the user's message:
// "reset-my-password.support.example.com." with zone "support.example.com"
// becomes "reset my password"
func dnsQueryText(name, zone string) string {
	name = strings.TrimSuffix(name, ".")
	if zone != "" {
		if strings.EqualFold(name, zone) {
			return ""
		}
		lowerName, lowerZone := strings.ToLower(name), "."+strings.ToLower(zone)
		if strings.HasSuffix(lowerName, lowerZone) {
			name = name[:len(name)-len(lowerZone)]
		}
	}
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, ".", " ")
	return strings.Join(strings.Fields(name), " ")
}

// dnsAnswer renders one reply for a TXT record. The banner of an escalated
// reply always survives truncation.
func dnsAnswer(reply string, ticketID *int) string {
	if ticketID == nil {
		return truncate(reply, dnsMaxResponse)
	}
	banner := agent.TicketBanner(*ticketID)
	budget := dnsMaxResponse - len(banner) - 1
	if reply == "" {
		return banner
	}
	return truncate(reply, budget) + " " + banner
}

// dnsTXTStrings splits s into strings that fit one TXT character-string each
func dnsTXTStrings(s string) []string {
	var txtStrings []string
	for i := 0; i < len(s); i += dnsTXTChunk {
		end := i + dnsTXTChunk
		if end > len(s) {
			end = len(s)
		}
		txtStrings = append(txtStrings, s[i:end])
	}
	return txtStrings
}

// handleDNS answers each TXT question with a one-turn conversation. DNS has
// no way to carry a session, so every question starts from an empty
// transcript.
func (app *supportApp) handleDNS(w dns.ResponseWriter, r *dns.Msg) {
	if len(r.Question) == 0 {
		return
	}

	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	zone := dnsZone()
	for _, q := range r.Question {
		if q.Qtype != dns.TypeTXT {
			continue
		}

		text := dnsQueryText(q.Name, zone)
		if text == "" {
			continue
		}
		if debugMode {
			log.Printf("[DNS] Question %q from %s", text, w.RemoteAddr())
		}

		answer := app.answerDNS(text)
		m.Answer = append(m.Answer, &dns.TXT{
			Hdr: dns.RR_Header{
				Name:   q.Name,
				Rrtype: dns.TypeTXT,
				Class:  dns.ClassINET,
				Ttl:    60,
			},
			Txt: dnsTXTStrings(answer),
		})
	}

	if err := w.WriteMsg(m); err != nil {
		log.Printf("[DNS] Failed to write response: %v", err)
	}
}

func (app *supportApp) answerDNS(text string) string {
	ctx, cancel := context.WithTimeout(context.Background(), dnsDeadline)
	defer cancel()

	sess := &session.Session{
		ID:         "dns_" + generateRequestID(),
		Transcript: session.NewTranscript(),
		CreatedAt:  time.Now(),
	}
	result := app.handleTurn(ctx, surfaceDNS, sess, text)

	if result.Err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "Request timed out"
	}
	return dnsAnswer(result.Assistant.Content, result.Assistant.TicketID)
}
