// Package local provides local adapters for the gateway module.
package local

import (
	"encoding/json"

	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/machine"
	gsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/gateway/domain"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
)

const gameCode = "color_game"

// Broadcaster receives game events and pushes them to WebSocket clients
type Broadcaster struct {
	gatewayBroadcaster domain.GatewayBroadcaster
}

func NewBroadcaster(gatewayBroadcaster domain.GatewayBroadcaster) *Broadcaster {
	return &Broadcaster{
		gatewayBroadcaster: gatewayBroadcaster,
	}
}

func (b *Broadcaster) convertEvent(event interface{}) []byte {
	var command string
	switch e := event.(type) {
	case machine.GameEvent:
		command = "ColorGameStateBRC"
		if e.Type == machine.EventRoundStuck || e.Type == machine.EventSettlementFailed {
			// Operational alerts stay in the logs
			return nil
		}
	case *machine.GameEvent:
		return b.convertEvent(*e)
	case *gsdomain.SettlementNotice:
		command = "ColorGameSettlementBRC"
	default:
		logger.WarnGlobal().Msgf("unknown event type %T, dropped", event)
		return nil
	}

	jsonMsg, err := json.Marshal(map[string]interface{}{
		"game_code": gameCode,
		"command":   command,
		"data":      event,
	})
	if err != nil {
		logger.ErrorGlobal().Err(err).Str("command", command).Msg("event marshal failed")
		return nil
	}
	return jsonMsg
}

func (b *Broadcaster) Broadcast(event interface{}) {
	if msgBytes := b.convertEvent(event); msgBytes != nil {
		b.gatewayBroadcaster.Broadcast(msgBytes)
	}
}

func (b *Broadcaster) SendToUser(userID int64, event interface{}) {
	if msgBytes := b.convertEvent(event); msgBytes != nil {
		b.gatewayBroadcaster.SendToUser(userID, msgBytes)
	}
}
