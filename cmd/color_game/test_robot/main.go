package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
)

// Config holds the robot configuration
type Config struct {
	Host      string
	AdminHost string
	Modes     []string
	UserCount int
	FirstUser int64
	Fund      decimal.Decimal
	BetMin    int
	BetMax    int
}

// Robot is a simulated player betting on every round it sees open
type Robot struct {
	UserID  int64
	cfg     Config
	conn    *websocket.Conn
	writeMu sync.Mutex
	ctx     context.Context
}

type envelope struct {
	GameCode string          `json:"game_code"`
	Command  string          `json:"command"`
	Data     json.RawMessage `json:"data"`
}

type roundEvent struct {
	Type  string `json:"type"`
	Round struct {
		ModeID       string `json:"mode_id"`
		PeriodNumber int64  `json:"period_number"`
		Status       string `json:"status"`
		LeftTime     int64  `json:"left_time"`
	} `json:"round"`
}

var (
	colors  = []string{"RED", "GREEN", "VIOLET"}
	numbers = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
)

func main() {
	host := flag.String("host", "localhost:8081", "Gateway host address")
	adminHost := flag.String("admin-host", "localhost:8082", "Admin API host used to fund robots")
	users := flag.Int("users", 100, "Number of concurrent robots")
	firstUser := flag.Int64("first-user", 100000, "User id of the first robot")
	modes := flag.String("modes", "blitz", "Comma separated modes to bet on")
	fund := flag.String("fund", "1000", "Balance credited to each robot before play, 0 to skip")
	flag.Parse()

	logger.Init(logger.Config{
		Level:  "info",
		Format: "console",
	})
	ctx := context.Background()

	cfg := Config{
		Host:      *host,
		AdminHost: *adminHost,
		Modes:     strings.Split(*modes, ","),
		UserCount: *users,
		FirstUser: *firstUser,
		Fund:      decimal.RequireFromString(*fund),
		BetMin:    1,
		BetMax:    10,
	}

	logger.Info(ctx).
		Int("users", cfg.UserCount).
		Str("host", cfg.Host).
		Strs("modes", cfg.Modes).
		Msg("🤖 Starting Test Robot")

	for i := 0; i < cfg.UserCount; i++ {
		time.Sleep(20 * time.Millisecond)
		go func(userID int64) {
			robot := NewRobot(userID, cfg)
			if err := robot.Run(); err != nil {
				logger.Error(ctx).Int64("user_id", userID).Err(err).Msg("Robot failed")
			}
		}(cfg.FirstUser + int64(i))
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	logger.Info(ctx).Msg("🛑 Stopping robots...")
	logger.Flush()
}

func NewRobot(userID int64, cfg Config) *Robot {
	return &Robot{
		UserID: userID,
		cfg:    cfg,
		ctx:    logger.WithFields(context.Background(), map[string]interface{}{"user_id": userID}),
	}
}

func (r *Robot) Run() error {
	if r.cfg.Fund.IsPositive() {
		if err := r.Fund(); err != nil {
			return fmt.Errorf("fund failed: %w", err)
		}
	}

	if err := r.ConnectWS(); err != nil {
		return fmt.Errorf("websocket connect failed: %w", err)
	}
	defer r.conn.Close()
	logger.Info(r.ctx).Msg("Robot connected to WebSocket")

	for _, mode := range r.cfg.Modes {
		r.send("ColorGameGetStateREQ", map[string]interface{}{"mode_id": mode})
	}
	return r.ListenLoop()
}

// Fund credits the robot through the admin API. The reference is stable per
// user so restarting the robot does not credit twice.
func (r *Robot) Fund() error {
	var err error
	for i := 0; i < 3; i++ {
		if i > 0 {
			time.Sleep(time.Second * time.Duration(i))
			logger.Info(r.ctx).Int("retry", i).Msg("Retrying fund...")
		}

		u := fmt.Sprintf("http://%s/api/admin/color_game/wallet/%d/adjust", r.cfg.AdminHost, r.UserID)
		body, _ := json.Marshal(map[string]interface{}{
			"amount":    r.cfg.Fund,
			"reference": fmt.Sprintf("robot-fund-%d", r.UserID),
		})

		resp, reqErr := http.Post(u, "application/json", bytes.NewReader(body))
		if reqErr != nil {
			err = reqErr
			continue
		}
		var result struct {
			Balance decimal.Decimal `json:"balance"`
			Error   string          `json:"error"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if decodeErr != nil {
			err = decodeErr
			continue
		}
		if resp.StatusCode != http.StatusOK {
			err = fmt.Errorf("status %d: %s", resp.StatusCode, result.Error)
			continue
		}

		logger.Info(r.ctx).Str("balance", result.Balance.String()).Msg("Robot funded")
		return nil
	}
	return fmt.Errorf("fund failed after 3 retries: %w", err)
}

func (r *Robot) ConnectWS() error {
	u := url.URL{Scheme: "ws", Host: r.cfg.Host, Path: "/ws", RawQuery: "user_id=" + strconv.FormatInt(r.UserID, 10)}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	r.conn = c
	return nil
}

func (r *Robot) send(command string, data interface{}) {
	req := map[string]interface{}{
		"game":    "color_game",
		"command": command,
		"data":    data,
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.WriteJSON(req); err != nil {
		logger.Error(r.ctx).Err(err).Str("command", command).Msg("Failed to send")
	}
}

func (r *Robot) ListenLoop() error {
	for {
		_, message, err := r.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var msg envelope
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn(r.ctx).Err(err).Msg("Failed to parse message")
			continue
		}

		switch msg.Command {
		case "ColorGameStateBRC":
			var event roundEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				logger.Warn(r.ctx).Err(err).Msg("Failed to parse round event")
				continue
			}
			if event.Type == "ROUND_OPENED" && r.wants(event.Round.ModeID) {
				go r.PlaceBet(event.Round.ModeID, event.Round.PeriodNumber, event.Round.LeftTime)
			}
		case "ColorGameGetStateRSP":
			var state struct {
				Round struct {
					ModeID       string `json:"mode_id"`
					PeriodNumber int64  `json:"period_number"`
					Status       string `json:"status"`
					LeftTime     int64  `json:"left_time"`
				} `json:"round"`
			}
			if err := json.Unmarshal(msg.Data, &state); err == nil && state.Round.Status == "OPEN" {
				go r.PlaceBet(state.Round.ModeID, state.Round.PeriodNumber, state.Round.LeftTime)
			}
		case "ColorGamePlaceBetRSP":
			logger.Debug(r.ctx).RawJSON("data", msg.Data).Msg("Bet response")
		case "ColorGameSettlementBRC":
			var notice struct {
				PeriodNumber int64  `json:"period_number"`
				ResultNumber int    `json:"result_number"`
				TotalWin     string `json:"total_win"`
				Balance      string `json:"balance"`
			}
			if err := json.Unmarshal(msg.Data, &notice); err == nil {
				logger.Info(r.ctx).
					Int64("period_number", notice.PeriodNumber).
					Int("result_number", notice.ResultNumber).
					Str("total_win", notice.TotalWin).
					Str("balance", notice.Balance).
					Msg("Received settlement")
			}
		}
	}
}

func (r *Robot) wants(mode string) bool {
	for _, m := range r.cfg.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// PlaceBet bets once on the period after a random delay inside the betting window.
func (r *Robot) PlaceBet(mode string, period int64, leftTime int64) {
	window := leftTime*1000 - 500
	if window <= 0 {
		return
	}
	time.Sleep(time.Duration(rand.Int63n(window)) * time.Millisecond)

	betType, value := "color", colors[rand.Intn(len(colors))]
	if rand.Intn(3) == 0 {
		betType, value = "number", numbers[rand.Intn(len(numbers))]
	}
	amount := decimal.NewFromInt(int64(r.cfg.BetMin + rand.Intn(r.cfg.BetMax-r.cfg.BetMin+1)))

	r.send("ColorGamePlaceBetREQ", map[string]interface{}{
		"mode_id":       mode,
		"period_number": period,
		"bet_type":      betType,
		"bet_value":     value,
		"amount":        amount,
	})

	logger.Info(r.ctx).
		Str("mode_id", mode).
		Int64("period_number", period).
		Str("bet_type", betType).
		Str("bet_value", value).
		Str("amount", amount.String()).
		Msg("Placed bet")
}
