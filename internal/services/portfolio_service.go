package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/apperr"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/database"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/models"
)

// recentDividendLimit bounds the dividend history returned with a snapshot.
// The trailing-30-day total is computed over this same window.
const recentDividendLimit = 20

// PortfolioServiceProvider defines the interface for portfolio services.
type PortfolioServiceProvider interface {
	GetPortfolio(ctx context.Context, userID string) (models.PortfolioSnapshot, error)
	AddPosition(ctx context.Context, userID string, position models.Position) error
	AddDividend(ctx context.Context, userID string, record models.DividendRecord) error
}

// PortfolioService reads and writes a user's positions and dividend history
// and computes the derived portfolio metrics.
type PortfolioService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(db *sql.DB, events EventServiceProvider) *PortfolioService {
	return &PortfolioService{db: db, events: events}
}

// GetPortfolio returns the aggregate snapshot for a user: positions ordered
// by descending market value, the most recent dividend records, and the
// derived totals. YearlyDividends is always exactly twelve times the
// trailing-30-day dividend total; it is a projection, not a trailing-365-day
// sum.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID string) (models.PortfolioSnapshot, error) {
	snapshot := models.PortfolioSnapshot{
		Positions: make([]models.PositionView, 0),
		Dividends: make([]models.DividendView, 0),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, name, shares, avg_price, current_price, asset_type
		FROM portfolios
		WHERE user_id = ?
		ORDER BY shares * current_price DESC`, userID)
	if err != nil {
		return models.PortfolioSnapshot{}, apperr.Storage(err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.Ticker, &p.Name, &p.Shares, &p.AvgPrice, &p.CurrentPrice, &p.AssetType); err != nil {
			return models.PortfolioSnapshot{}, apperr.Storage(err)
		}
		view := models.PositionView{
			Ticker:        p.Ticker,
			Name:          p.Name,
			Shares:        p.Shares,
			AvgPrice:      p.AvgPrice,
			CurrentPrice:  p.CurrentPrice,
			Value:         p.Value(),
			ChangePercent: p.ChangePercent(),
			AssetType:     p.AssetType,
		}
		snapshot.Positions = append(snapshot.Positions, view)
		snapshot.TotalValue += view.Value
	}
	if err := rows.Err(); err != nil {
		return models.PortfolioSnapshot{}, apperr.Storage(err)
	}

	dividends, monthly, err := s.recentDividends(ctx, userID, time.Now().UTC())
	if err != nil {
		return models.PortfolioSnapshot{}, err
	}
	snapshot.Dividends = dividends
	snapshot.MonthlyDividends = monthly
	snapshot.YearlyDividends = monthly * 12

	return snapshot, nil
}

// recentDividends returns the latest dividend records newest first, together
// with the sum of amounts paid within the trailing 30 days of now.
func (s *PortfolioService) recentDividends(ctx context.Context, userID string, now time.Time) ([]models.DividendView, float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, amount, payment_date, dividend_type
		FROM dividends
		WHERE user_id = ?
		ORDER BY payment_date DESC
		LIMIT ?`, userID, recentDividendLimit)
	if err != nil {
		return nil, 0, apperr.Storage(err)
	}
	defer rows.Close()

	views := make([]models.DividendView, 0)
	cutoff := now.AddDate(0, 0, -30)
	var monthly float64

	for rows.Next() {
		var view models.DividendView
		var paidAt time.Time
		if err := rows.Scan(&view.Ticker, &view.Amount, &paidAt, &view.Type); err != nil {
			return nil, 0, apperr.Storage(err)
		}
		view.Date = paidAt.Format(database.DateLayout)
		views = append(views, view)

		if !paidAt.Before(cutoff) {
			monthly += view.Amount
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage(err)
	}
	return views, monthly, nil
}

// AddPosition upserts a position keyed by (user, ticker). An existing row
// only accumulates shares; name, prices, and asset type stay at their
// first-insert values. Numeric fields are not range-checked: the caller is
// trusted, matching the write contract.
func (s *PortfolioService) AddPosition(ctx context.Context, userID string, position models.Position) error {
	position.Ticker = strings.ToUpper(strings.TrimSpace(position.Ticker))
	if position.Ticker == "" {
		return apperr.Validation("ticker is required")
	}

	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO portfolios (user_id, ticker, name, shares, avg_price, current_price, asset_type)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, ticker) DO UPDATE
			SET shares = portfolios.shares + excluded.shares,
			    updated_at = CURRENT_TIMESTAMP`,
			userID, position.Ticker, position.Name, position.Shares,
			position.AvgPrice, position.CurrentPrice, position.AssetType)
		if err != nil {
			return apperr.Storage(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordPortfolioEvent(ctx, "portfolio.position.add",
		fmt.Sprintf("position added: %s x%g", position.Ticker, position.Shares), userID)
	return nil
}

// AddDividend appends a dividend record to the user's history.
func (s *PortfolioService) AddDividend(ctx context.Context, userID string, record models.DividendRecord) error {
	record.Ticker = strings.ToUpper(strings.TrimSpace(record.Ticker))
	if record.Ticker == "" {
		return apperr.Validation("ticker is required")
	}
	if record.Amount <= 0 {
		return apperr.Validation("amount must be positive")
	}
	if record.PaymentDate.IsZero() {
		return apperr.Validation("payment date is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dividends (id, user_id, ticker, amount, payment_date, dividend_type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), userID, record.Ticker, record.Amount,
		record.PaymentDate.UTC().Format(database.DateLayout), record.DividendType)
	if err != nil {
		return apperr.Storage(err)
	}

	s.recordPortfolioEvent(ctx, "portfolio.dividend.add",
		fmt.Sprintf("dividend recorded: %s %.2f", record.Ticker, record.Amount), userID)
	return nil
}

// recordPortfolioEvent writes an audit event; failures are logged only so
// auditing never fails the operation it describes.
func (s *PortfolioService) recordPortfolioEvent(ctx context.Context, eventType, message, userID string) {
	if err := s.events.CreateEvent(ctx, eventType, "info", message, &userID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
