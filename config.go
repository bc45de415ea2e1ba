package main

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Port configuration based on environment; 0 disables a surface
var (
	HTTP_PORT  int
	HTTPS_PORT int
	SSH_PORT   int
	DNS_PORT   int
)

var debugMode bool

func init() {
	loadPortConfig()
}

func loadPortConfig() {
	debugMode = os.Getenv("DEBUG") == "true"

	// Check for high-port development mode
	if os.Getenv("HIGH_PORT_MODE") == "true" {
		log.Println("Running in HIGH_PORT_MODE - using non-privileged ports")
		HTTP_PORT = 8080  // Instead of 80
		HTTPS_PORT = 8443 // Instead of 443
	} else {
		// Production mode - standard ports
		HTTP_PORT = 80
		HTTPS_PORT = 443
	}
	// SSH and DNS front ends are opt-in
	SSH_PORT = 0
	DNS_PORT = 0

	HTTP_PORT = envPort("HTTP_PORT", HTTP_PORT)
	HTTPS_PORT = envPort("HTTPS_PORT", HTTPS_PORT)
	SSH_PORT = envPort("SSH_PORT", SSH_PORT)
	DNS_PORT = envPort("DNS_PORT", DNS_PORT)

	log.Printf("Port configuration: HTTP=%d, HTTPS=%d, SSH=%d, DNS=%d",
		HTTP_PORT, HTTPS_PORT, SSH_PORT, DNS_PORT)
}

func envPort(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	port, err := strconv.Atoi(v)
	if err != nil || port < 0 || port > 65535 {
		log.Printf("Ignoring invalid %s=%q", name, v)
		return fallback
	}
	return port
}

// findSSLCertificates looks for SSL certificates in common locations
func findSSLCertificates() (certPath, keyPath string, found bool) {
	// First, check working directory
	if fileExists("cert.pem") && fileExists("key.pem") {
		return "cert.pem", "key.pem", true
	}

	// Check for Let's Encrypt certificates
	domain := os.Getenv("BASE_DOMAIN")
	if domain == "" {
		return "", "", false
	}

	letsEncryptPaths := []string{
		filepath.Join("/etc/letsencrypt/live", domain),
		filepath.Join("/etc/letsencrypt/live", "support."+domain),
	}

	for _, basePath := range letsEncryptPaths {
		certFile := filepath.Join(basePath, "fullchain.pem")
		keyFile := filepath.Join(basePath, "privkey.pem")

		if fileExists(certFile) && fileExists(keyFile) {
			log.Printf("Found Let's Encrypt certificates at %s", basePath)
			return certFile, keyFile, true
		}
	}

	return "", "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
