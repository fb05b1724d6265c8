package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netpong/backend/internal/client"
)

// wsSender serializes writes onto the websocket so the predictor can
// fire inputs and pings from the same loop without racing.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteMessage(websocket.BinaryMessage, b)
}

func main() {
	host := flag.String("host", "localhost:8080", "server host:port")
	code := flag.String("code", "", "match code to join (empty mints a new one)")
	flag.Parse()

	matchCode := strings.ToUpper(*code)
	if matchCode == "" {
		var err error
		matchCode, err = mintCode(*host)
		if err != nil {
			log.Fatalf("[BOT] failed to create match: %v", err)
		}
		log.Printf("[BOT] created match %s - share this code with the opponent", matchCode)
	}

	url := fmt.Sprintf("ws://%s/api/v1/match/%s/ws", *host, matchCode)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("[BOT] dial %s: %v", url, err)
	}
	defer conn.Close()
	log.Printf("[BOT] connected to %s", url)

	p := client.New(&wsSender{conn: conn})
	defer p.Close()

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if err := p.HandleMessage(data); err != nil {
				log.Printf("[BOT] bad frame: %v", err)
			}
		}
	}()

	start := time.Now()
	frame := time.NewTicker(16 * time.Millisecond)
	defer frame.Stop()
	ping := time.NewTicker(2 * time.Second)
	defer ping.Stop()

	for {
		select {
		case err := <-readErr:
			log.Printf("[BOT] connection closed: %v", err)
			return
		case <-ping.C:
			p.Ping(float64(time.Since(start).Milliseconds()))
		case <-frame.C:
			nowMs := float64(time.Since(start).Milliseconds())
			p.Advance(nowMs)

			for {
				ev, ok := p.NextMatchEvent()
				if !ok {
					break
				}
				log.Printf("[BOT] event: %s (rtt=%.0fms)", ev, p.RTT())
			}

			if winner, over := p.Winner(); over {
				score := p.Score()
				log.Printf("[BOT] game over: slot %d wins %d-%d", winner, score[0], score[1])
				return
			}

			p.SubmitLocalInput(chaseBall(p))
		}
	}
}

// chaseBall is the whole bot: steer toward the ball's y with a little
// deadband so the paddle does not jitter around it.
func chaseBall(p *client.Predictor) int8 {
	slot, seated := p.Slot()
	if !seated {
		return 0
	}
	snap := p.SnapshotForRender()
	diff := snap.BallPos.Y - snap.PaddleY[slot]
	switch {
	case diff < -0.5:
		return -1
	case diff > 0.5:
		return 1
	default:
		return 0
	}
}

func mintCode(host string) (string, error) {
	resp, err := http.Post(fmt.Sprintf("http://%s/api/v1/match", host), "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Code, nil
}
