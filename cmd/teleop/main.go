// Teleop - keyboard remote for the hexapod dashboard
//
// Reads one command per line and sends it over the teleop websocket:
//
//	w/s/a/d   forward, backward, left, right
//	q/e       turn left, turn right
//	x         stop
//	t N       virtual touch pattern N (0-5)
//	p         ping
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws/teleop", "Teleop websocket URL")
	speed := flag.Float64("speed", 0.002, "Linear speed per cycle")
	turn := flag.Float64("turn", 0.001, "Turn rate per cycle")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Error("dial failed", "url", *url, "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	log.Info("connected", "url", *url)

	go readLoop(conn)

	keys := keymap(*speed, *turn)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		msg, err := parseCommand(strings.TrimSpace(scanner.Text()), keys)
		switch {
		case err != nil:
			fmt.Println(err)
		case msg != nil:
			if err := send(conn, msg); err != nil {
				log.Error("send failed", "error", err)
				return
			}
		}
		fmt.Print("> ")
	}
}

// keymap maps a key to a move message body.
func keymap(speed, turn float64) map[string]protocol.MoveData {
	return map[string]protocol.MoveData{
		"w": {Speed: speed, Direction: math.Pi / 2},
		"s": {Speed: speed, Direction: -math.Pi / 2},
		"a": {Speed: speed, Direction: math.Pi},
		"d": {Speed: speed, Direction: 0},
		"q": {TurnRate: -turn},
		"e": {TurnRate: turn},
		"x": {},
	}
}

func parseCommand(line string, keys map[string]protocol.MoveData) (*protocol.Message, error) {
	if line == "" {
		return nil, nil
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "t":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: t <pattern>")
		}
		p, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q", fields[1])
		}
		if err := (protocol.TouchData{Pattern: p}).Validate(); err != nil {
			return nil, err
		}
		return protocol.NewTouchMessage(p)
	case "p":
		return protocol.NewPingMessage(uuid.NewString(), time.Now().UnixMilli())
	}
	if m, ok := keys[fields[0]]; ok {
		return protocol.NewMoveMessage(m.Speed, m.Direction, m.TurnRate)
	}
	return nil, fmt.Errorf("unknown command %q", fields[0])
}

func send(conn *websocket.Conn, msg *protocol.Message) error {
	b, err := msg.Bytes()
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// readLoop prints replies until the connection drops.
func readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Warn("connection closed", "error", err)
			os.Exit(0)
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Debug("unparseable reply", "error", err)
			continue
		}
		switch msg.Type {
		case protocol.TypeError:
			if e, err := msg.GetErrorData(); err == nil {
				fmt.Println("\n⚠️ ", e.Message)
			}
		case protocol.TypePong:
			if p, err := msg.GetPongData(); err == nil {
				fmt.Printf("\npong %s (%d ms)\n", p.ID, time.Now().UnixMilli()-p.PingTS)
			}
		}
	}
}
