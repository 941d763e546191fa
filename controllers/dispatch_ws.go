package controller

import (
	"context"
	"log"

	"jobtrail/engine"

	"github.com/gofiber/websocket/v2"
)

// HandleDispatchProgressWS streams per-rule results of a dispatch pass as
// they complete, then a final summary frame.
func HandleDispatchProgressWS(dispatcher *engine.Dispatcher, userID uint) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		var input struct {
			Action string `json:"action"`
		}

		// Read JSON message
		if err := c.ReadJSON(&input); err != nil {
			log.Printf("Error reading JSON: %v", err)
			return
		}

		if input.Action != "run" {
			_ = c.WriteJSON(map[string]string{"error": "unknown action"})
			return
		}

		progress := func(result engine.RuleResult) {
			frame := struct {
				Type   string            `json:"type"`
				Result engine.RuleResult `json:"result"`
			}{
				Type:   "rule_result",
				Result: result,
			}
			if err := c.WriteJSON(frame); err != nil {
				log.Printf("Error writing JSON: %v", err)
			}
		}

		report, err := dispatcher.WithProgress(progress).RunPass(context.Background(), userID)
		if err != nil {
			_ = c.WriteJSON(map[string]string{"type": "error", "error": err.Error()})
			return
		}

		summary := struct {
			Type           string `json:"type"`
			PassID         string `json:"pass_id"`
			ProcessedRules int    `json:"processed_rules"`
			Status         string `json:"status"`
		}{
			Type:           "summary",
			PassID:         report.PassID,
			ProcessedRules: report.ProcessedRules,
			Status:         "completed",
		}
		if err := c.WriteJSON(summary); err != nil {
			log.Printf("Error writing JSON: %v", err)
		}
	}
}
