package models

// Requests for risk and sentiment HTTP endpoints.

type AssetRiskRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=32"`
	Days   int    `query:"days" json:"days" default:"30" validate:"gte=2,lte=365"`
}

type PortfolioRiskRequest struct {
	UserID     string `param:"user_id" json:"user_id" validate:"required,max=64"`
	Days       int    `query:"days" json:"days" default:"90" validate:"gte=1,lte=730"`
	SkipStress bool   `query:"skip_stress" json:"skip_stress"`
}

type ScoreTextRequest struct {
	Text       string  `json:"text" validate:"required,max=10000"`
	Engagement float64 `json:"engagement" validate:"gte=0"`
	Matcher    string  `json:"matcher" validate:"omitempty,oneof=substring word"`
}

type SymbolSentimentRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=32"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=10000"`
}

type AlertsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	Type  string `query:"type" json:"type" validate:"omitempty,oneof=asset_risk_spike portfolio_risk_breach market_risk_spike sentiment_alert"`
}
