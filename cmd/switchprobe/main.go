// Package main is a smoke-test tool for the mode-switch flow. It logs in,
// ensures a persona exists, then cycles between anonymous and professional
// mode while listening for realtime events on the WebSocket.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

var (
	switchCount int64
	exitCount   int64
	eventCount  int64
)

func main() {
	host := flag.String("host", "localhost:8460", "API server host")
	email := flag.String("email", "admin@linker.local", "Test user email")
	password := flag.String("password", "password123", "Test user password")
	cycles := flag.Int("cycles", 10, "Number of switch/exit cycles")
	pause := flag.Duration("pause", time.Second, "Pause between transitions")
	flag.Parse()

	log.Printf("Mode switch probe against %s", *host)

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.Println("Logged in")

	personaID, err := ensurePersona(*host, token)
	if err != nil {
		log.Fatalf("Persona setup failed: %v", err)
	}
	log.Printf("Using persona %s", personaID)

	stop := make(chan struct{})
	go listenEvents(*host, token, stop)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	for i := 0; i < *cycles; i++ {
		select {
		case <-interrupt:
			log.Println("Interrupted")
			i = *cycles
			continue
		default:
		}

		target, err := switchPersona(*host, token, personaID)
		if err != nil {
			log.Printf("switch %d failed: %v", i, err)
		} else {
			atomic.AddInt64(&switchCount, 1)
			log.Printf("switch %d -> %s", i, target)
		}
		time.Sleep(*pause)

		target, err = exitAnonymous(*host, token)
		if err != nil {
			log.Printf("exit %d failed: %v", i, err)
		} else {
			atomic.AddInt64(&exitCount, 1)
			log.Printf("exit %d -> %s", i, target)
		}
		time.Sleep(*pause)
	}

	close(stop)
	time.Sleep(500 * time.Millisecond)
	log.Printf("Done: %d switches, %d exits, %d events received",
		atomic.LoadInt64(&switchCount), atomic.LoadInt64(&exitCount), atomic.LoadInt64(&eventCount))
}

func login(host, email, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(fmt.Sprintf("http://%s/api/auth/login", host), "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func apiRequest(method, host, path, token string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, fmt.Sprintf("http://%s%s", host, path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 5 * time.Second}
	return client.Do(req)
}

func ensurePersona(host, token string) (string, error) {
	resp, err := apiRequest(http.MethodGet, host, "/api/personas", token, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var list struct {
		Personas []struct {
			PersonaID string `json:"persona_id"`
		} `json:"personas"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", err
	}
	if len(list.Personas) > 0 {
		return list.Personas[0].PersonaID, nil
	}

	createResp, err := apiRequest(http.MethodPost, host, "/api/personas", token, map[string]string{
		"display_name": "Probe Persona",
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = createResp.Body.Close() }()

	if createResp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("persona create failed with status %d", createResp.StatusCode)
	}
	var created struct {
		PersonaID string `json:"persona_id"`
	}
	if err := json.NewDecoder(createResp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.PersonaID, nil
}

func switchPersona(host, token, personaID string) (string, error) {
	resp, err := apiRequest(http.MethodPost, host, "/api/personas/"+personaID+"/switch", token, map[string]interface{}{
		"from": map[string]interface{}{"location": "/feed", "path": "/feed", "offset": 0},
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}
	var result struct {
		TargetPath string `json:"target_path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.TargetPath, nil
}

func exitAnonymous(host, token string) (string, error) {
	resp, err := apiRequest(http.MethodPost, host, "/api/personas/exit", token, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("exit failed with status %d", resp.StatusCode)
	}
	var result struct {
		TargetPath string `json:"target_path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.TargetPath, nil
}

func listenEvents(host, token string, stop <-chan struct{}) {
	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws", RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Printf("WebSocket connect failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		atomic.AddInt64(&eventCount, 1)
		log.Printf("event: %s", message)
	}
}
