package config

import "time"

type GatewayConfig struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
}

type WebSocketConfig struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// LoadGatewayConfig loads configuration for the player/admin HTTP gateway
func LoadGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerConfig{
			Port: getEnv("GATEWAY_SERVER_PORT", "8081"),
			Name: "gateway-service",
		},
		WebSocket: WebSocketConfig{
			PingInterval:   getEnvDuration("WS_PING_INTERVAL", 54*time.Second),
			WriteWait:      getEnvDuration("WS_WRITE_WAIT", 10*time.Second),
			PongWait:       getEnvDuration("WS_PONG_WAIT", 60*time.Second),
			MaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 4096)),
			SendBuffer:     getEnvInt("WS_SEND_BUFFER", 256),
		},
	}
}
