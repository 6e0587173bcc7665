package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// AlertData is the per-type payload of an alert
type AlertData struct {
	Token          string   `json:"token,omitempty" example:"ETH"`
	TargetPrice    *float64 `json:"targetPrice,omitempty" example:"2500"`
	Condition      string   `json:"condition,omitempty" example:"change"`
	ChangePercent  *float64 `json:"changePercent,omitempty" example:"-13.79"`
	PortfolioValue *float64 `json:"portfolioValue,omitempty" example:"8000"`
	Threshold      *float64 `json:"threshold,omitempty" example:"10000"`
	GasPrice       *float64 `json:"gasPrice,omitempty" example:"75"`
	Network        string   `json:"network,omitempty" example:"ethereum"`
	Protocol       string   `json:"protocol,omitempty" example:"aave-v3 USDC (Ethereum)"`
	MinAPY         *float64 `json:"minAPY,omitempty" example:"15"`
	APY            *float64 `json:"apy,omitempty" example:"18.4"`
	Error          string   `json:"error,omitempty" example:"upstream timeout"`
}

// Alert represents a single notification
type Alert struct {
	ID          string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Type        string    `json:"type" example:"gas"`
	Title       string    `json:"title" example:"High Gas Prices"`
	Message     string    `json:"message" example:"Gas prices on ethereum are high (75 gwei). Consider waiting."`
	Severity    string    `json:"severity" example:"info"`
	Triggered   bool      `json:"triggered" example:"false"`
	CreatedAt   int64     `json:"createdAt" example:"1710417600000"`
	TriggeredAt *int64    `json:"triggeredAt,omitempty" example:"1710417600000"`
	Active      bool      `json:"active" example:"true"`
	Data        AlertData `json:"data"`
}

type AlertListResponse struct {
	Alerts      []Alert `json:"alerts"`
	UnreadCount int     `json:"unreadCount" example:"3"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount" example:"3"`
}

type CreateAlertRequest struct {
	Type     string    `json:"type" example:"security"`
	Title    string    `json:"title" example:"Risky approval"`
	Message  string    `json:"message" example:"Unlimited token approval requested"`
	Severity string    `json:"severity" example:"critical"`
	Data     AlertData `json:"data"`
}

// AlertRule is a user-defined trigger
type AlertRule struct {
	ID         string                 `json:"id" example:"default-gas-high"`
	Type       string                 `json:"type" example:"gas"`
	Name       string                 `json:"name" example:"High Gas Prices"`
	Conditions map[string]interface{} `json:"conditions"`
	Active     bool                   `json:"active" example:"true"`
	CreatedAt  int64                  `json:"createdAt" example:"1710417600000"`
}

type RuleListResponse struct {
	Rules []AlertRule `json:"rules"`
}

type CreateRuleRequest struct {
	Type       string                 `json:"type" example:"price"`
	Name       string                 `json:"name" example:"ETH below 2000"`
	Conditions map[string]interface{} `json:"conditions"`
	Active     bool                   `json:"active" example:"true"`
}

type UpdateRuleRequest struct {
	Name       string                 `json:"name,omitempty" example:"High Gas Prices"`
	Conditions map[string]interface{} `json:"conditions,omitempty"`
	Active     bool                   `json:"active,omitempty" example:"false"`
}

type PricesSnapshotRequest struct {
	Prices map[string]float64 `json:"prices"`
}

type PortfolioSnapshotRequest struct {
	Value float64 `json:"value" example:"8000"`
}

type GasSnapshotRequest struct {
	GasPrices map[string]float64 `json:"gasPrices"`
}

type YieldOpportunity struct {
	Protocol string  `json:"protocol" example:"aave-v3 USDC (Ethereum)"`
	APY      float64 `json:"apy" example:"18.4"`
}

type YieldsSnapshotRequest struct {
	Opportunities []YieldOpportunity `json:"opportunities"`
}

type SnapshotResponse struct {
	Alerts []Alert `json:"alerts"`
}

type HealthResponse struct {
	Status   string `json:"status" example:"ready"`
	Version  string `json:"version,omitempty" example:"0.1.0"`
	Database string `json:"database,omitempty" example:"ok"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string            `json:"code" example:"VALIDATION_FAILED"`
	Message string            `json:"message" example:"Request validation failed"`
	Details map[string]string `json:"details,omitempty"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

func snapshotEndpoint(path, summary, description string, body interface{}) *endpoint.EndPoint {
	return endpoint.New(
		endpoint.POST,
		path,
		endpoint.WithTags("Snapshots"),
		endpoint.WithSummary(summary),
		endpoint.WithDescription(description),
		endpoint.WithBody(body),
		endpoint.WithConsume([]mime.MIME{mime.JSON}),
		endpoint.WithProduce([]mime.MIME{mime.JSON}),
		endpoint.WithSuccessfulReturns([]response.Response{
			response.New(SnapshotResponse{}, "200", "Alerts emitted by the evaluation"),
		}),
		endpoint.WithErrors([]response.Response{
			response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
			response.New(ErrorResponse{Code: "EMPTY_SNAPSHOT", Message: "Snapshot contains no data"}, "422", "Unprocessable Entity"),
			response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests"}, "429", "Too Many Requests"),
			internalError,
		}),
	)
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Defiwatch Alerts API",
		Version:     "v1.0.0",
		Description: "Alert rule engine and notification lifecycle for a DeFi portfolio dashboard",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	idParam := func(desc string) *parameter.Parameter {
		return parameter.StrParam("id", parameter.Path, parameter.WithDescription(desc), parameter.WithRequired())
	}

	endpoints := []*endpoint.EndPoint{
		// Alerts

		endpoint.New(
			endpoint.GET,
			"/alerts",
			endpoint.WithTags("Alerts"),
			endpoint.WithSummary("List alerts"),
			endpoint.WithDescription("Returns alerts newest first together with the unread count"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("type", parameter.Query, parameter.WithDescription("price, portfolio, gas, yield or security")),
				parameter.StrParam("severity", parameter.Query, parameter.WithDescription("info, warning or critical")),
				parameter.BoolParam("unread", parameter.Query, parameter.WithDescription("Only unread alerts")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AlertListResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_ALERT_TYPE", Message: "Alert type must be one of price, portfolio, gas, yield, security"}, "422", "Unprocessable Entity"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/alerts",
			endpoint.WithTags("Alerts"),
			endpoint.WithSummary("Report an alert"),
			endpoint.WithDescription("Records an alert reported by a collaborator. The host is notified when permission is granted."),
			endpoint.WithBody(CreateAlertRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Alert{}, "201", "Alert created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/alerts/unread-count",
			endpoint.WithTags("Alerts"),
			endpoint.WithSummary("Unread count"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UnreadCountResponse{}, "200", "OK"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/alerts/read-all",
			endpoint.WithTags("Alerts"),
			endpoint.WithSummary("Mark every alert as read"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UnreadCountResponse{}, "200", "OK"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/alerts/{id}",
			endpoint.WithTags("Alerts"),
			endpoint.WithSummary("Get an alert"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(idParam("Alert ID")),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Alert{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "ALERT_NOT_FOUND", Message: "Alert not found"}, "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/alerts/{id}/read",
			endpoint.WithTags("Alerts"),
			endpoint.WithSummary("Mark an alert as read"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(idParam("Alert ID")),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UnreadCountResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "ALERT_NOT_FOUND", Message: "Alert not found"}, "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/alerts/{id}",
			endpoint.WithTags("Alerts"),
			endpoint.WithSummary("Dismiss an alert"),
			endpoint.WithDescription("Deletes the alert. Unknown ids succeed."),
			endpoint.WithParams(idParam("Alert ID")),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Alert dismissed"),
			}),
		),

		// Rules

		endpoint.New(
			endpoint.GET,
			"/rules",
			endpoint.WithTags("Rules"),
			endpoint.WithSummary("List alert rules"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RuleListResponse{}, "200", "OK"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/rules",
			endpoint.WithTags("Rules"),
			endpoint.WithSummary("Create an alert rule"),
			endpoint.WithDescription("Condition keys: price rules use changePercent and timeWindow, or condition (above|below) with targetPrice; portfolio and gas rules use threshold; yield rules use minAPY. Optional: operator, cooldown, token, network."),
			endpoint.WithBody(CreateRuleRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AlertRule{}, "201", "Rule created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/rules/{id}",
			endpoint.WithTags("Rules"),
			endpoint.WithSummary("Get an alert rule"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(idParam("Rule ID")),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AlertRule{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "RULE_NOT_FOUND", Message: "Alert rule not found"}, "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.PATCH,
			"/rules/{id}",
			endpoint.WithTags("Rules"),
			endpoint.WithSummary("Update an alert rule"),
			endpoint.WithDescription("Partial update. Conditions are merged key by key; missing keys are kept."),
			endpoint.WithParams(idParam("Rule ID")),
			endpoint.WithBody(UpdateRuleRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AlertRule{}, "200", "Rule updated"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "RULE_NOT_FOUND", Message: "Alert rule not found"}, "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/rules/{id}",
			endpoint.WithTags("Rules"),
			endpoint.WithSummary("Delete an alert rule"),
			endpoint.WithParams(idParam("Rule ID")),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Rule deleted"),
			}),
		),

		// Snapshots

		snapshotEndpoint("/snapshots/prices", "Evaluate a price snapshot",
			"Runs price rules against the snapshot and records it in the price history", PricesSnapshotRequest{}),
		snapshotEndpoint("/snapshots/portfolio", "Evaluate the portfolio value",
			"Fires portfolio rules whose threshold the value has fallen below", PortfolioSnapshotRequest{}),
		snapshotEndpoint("/snapshots/gas", "Evaluate gas prices",
			"Fires gas rules whose threshold a network's gas price (gwei) exceeds", GasSnapshotRequest{}),
		snapshotEndpoint("/snapshots/yields", "Evaluate yield opportunities",
			"Fires yield rules whose minimum APY an opportunity exceeds", YieldsSnapshotRequest{}),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
