package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	gsdomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	gsusecase "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/usecase"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
)

// Response error codes carried in the data of RSP messages
const (
	CodeSuccess       = 0
	CodeInvalidParam  = 1
	CodeStateConflict = 2
	CodeInternalError = 3
)

// ErrorCode classifies err for clients.
func ErrorCode(err error) int {
	switch {
	case err == nil:
		return CodeSuccess
	case gsdomain.IsValidationError(err):
		return CodeInvalidParam
	case gsdomain.IsStateConflict(err):
		return CodeStateConflict
	default:
		return CodeInternalError
	}
}

type placeBetPayload struct {
	ModeID       string          `json:"mode_id"`
	PeriodNumber int64           `json:"period_number"`
	BetType      string          `json:"bet_type"`
	BetValue     string          `json:"bet_value"`
	Amount       decimal.Decimal `json:"amount"`
}

func rsp(command string, data interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"game_code": "color_game",
		"command":   command,
		"data":      data,
	})
}

func (uc *GatewayUseCase) handleColorGame(ctx context.Context, userID int64, command string, data []byte) ([]byte, error) {
	switch command {
	case "ColorGamePlaceBetREQ":
		var payload placeBetPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			logger.Error(ctx).
				Err(err).
				Int64("user_id", userID).
				Str("command", command).
				Msg("Failed to unmarshal PlaceBet payload")
			return nil, fmt.Errorf("invalid place_bet payload: %w", err)
		}

		// Helper to build error response
		buildError := func(err error) ([]byte, error) {
			logger.Warn(ctx).
				Int64("user_id", userID).
				Str("command", command).
				Int("error_code", ErrorCode(err)).
				Err(err).
				Msg("PlaceBet failed")
			return rsp("ColorGamePlaceBetRSP", map[string]interface{}{
				"error_code": ErrorCode(err),
				"bet_id":     "",
				"error":      err.Error(),
			})
		}

		betType, ok := gsdomain.ParseBetType(payload.BetType)
		if !ok {
			return buildError(fmt.Errorf("%w: bet type %q", gsdomain.ErrInvalidBetValue, payload.BetType))
		}

		result, err := uc.colorGameSvc.PlaceBet(ctx, gsusecase.PlaceBetRequest{
			ModeID:       payload.ModeID,
			PeriodNumber: payload.PeriodNumber,
			UserID:       userID,
			BetType:      betType,
			BetValue:     payload.BetValue,
			Amount:       payload.Amount,
		})
		if err != nil {
			return buildError(err)
		}

		return rsp("ColorGamePlaceBetRSP", map[string]interface{}{
			"error_code": CodeSuccess,
			"bet_id":     result.Bet.ID,
			"balance":    result.Balance,
			"error":      "",
		})

	case "ColorGameGetStateREQ":
		var payload struct {
			ModeID string `json:"mode_id"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("invalid get_state payload: %w", err)
		}

		state, err := uc.colorGameSvc.GetState(ctx, payload.ModeID, userID)
		if err != nil {
			logger.Error(ctx).
				Err(err).
				Int64("user_id", userID).
				Str("command", command).
				Msg("GetState failed")
			return rsp("error", map[string]interface{}{
				"error_code": ErrorCode(err),
				"error":      err.Error(),
			})
		}
		return rsp("ColorGameGetStateRSP", state)

	default:
		logger.Error(ctx).
			Int64("user_id", userID).
			Str("command", command).
			Msg("Unknown command for color_game")
		return nil, fmt.Errorf("unknown command for color_game: %s", command)
	}
}
