package api

import "encoding/json"

// handleRunBotLogic drives one run_bot_logic pass. Per-session failures
// never surface here — the runner already converts them into
// bot_error notifications and continues with the next session.
func (s *Server) handleRunBotLogic(ac actionContext, data json.RawMessage) (interface{}, error) {
	if err := s.runner.Run(ac.gin.Request.Context()); err != nil {
		return nil, err
	}
	return map[string]interface{}{"ran": true}, nil
}
