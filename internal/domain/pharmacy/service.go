package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careassist/careassist/internal/platform/metrics"
)

var ErrPrescriptionNotFound = errors.New("prescription not found")

const (
	UnitPrice            = 75.0
	DeliveryCharge       = 50.0
	OrderStatusConfirmed = "confirmed"

	deliveryDays = 2
	// typedTextQuality is the text quality credited to typed prescriptions.
	typedTextQuality = 1.0
)

// ValidationError is an order or prescription input problem. Its message is
// safe to show to the caller.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

type Service struct {
	prescriptions PrescriptionStore
	orders        OrderStore
	catalog       *Catalog
	llm           Extractor
	rules         *RuleExtractor
	now           func() time.Time
	logger        zerolog.Logger
}

// NewService wires the pharmacy service. llm may be nil; when set it is
// tried before the rule extractor.
func NewService(prescriptions PrescriptionStore, orders OrderStore, catalog *Catalog, llm Extractor, logger zerolog.Logger) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{
		prescriptions: prescriptions,
		orders:        orders,
		catalog:       catalog,
		llm:           llm,
		rules:         NewRuleExtractor(),
		now:           time.Now,
		logger:        logger,
	}
}

// -- Prescriptions --

func (s *Service) AnalyzePrescription(ctx context.Context, text string) (*Prescription, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ValidationError("Prescription text is required")
	}

	extraction, extractor := s.extract(ctx, text)
	for i := range extraction.Medicines {
		extraction.Medicines[i].Available = s.catalog.Available(extraction.Medicines[i].Name)
	}

	now := s.now()
	p := &Prescription{
		ID:              newPrescriptionID(now),
		Patient:         extraction.Patient,
		Doctor:          extraction.Doctor,
		Medicines:       extraction.Medicines,
		Diagnosis:       extraction.Diagnosis,
		ConfidenceScore: Confidence(typedTextQuality, extraction),
		Extractor:       extractor,
		RawText:         text,
		CreatedAt:       now.UTC(),
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("store prescription: %w", err)
	}
	metrics.IncPrescriptionAnalyzed(extractor)
	s.logger.Info().
		Str("prescription_id", p.ID).
		Str("extractor", extractor).
		Int("medicines", len(p.Medicines)).
		Float64("confidence", p.ConfidenceScore).
		Msg("prescription analyzed")
	return p, nil
}

// extract prefers the LLM extractor and falls back to the rules on any
// error.
func (s *Service) extract(ctx context.Context, text string) (*Extraction, string) {
	if s.llm != nil {
		e, err := s.llm.Extract(ctx, text)
		if err == nil {
			return e, s.llm.Name()
		}
		s.logger.Warn().Err(err).Msg("llm extraction failed, using rules")
	}
	e, _ := s.rules.Extract(ctx, text)
	return e, s.rules.Name()
}

func (s *Service) GetPrescription(ctx context.Context, id string) (*Prescription, error) {
	return s.prescriptions.Get(ctx, id)
}

func (s *Service) DeletePrescription(ctx context.Context, id string) error {
	return s.prescriptions.Delete(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, limit, offset)
}

// -- Orders --

func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if _, err := s.prescriptions.Get(ctx, strings.TrimSpace(req.PrescriptionID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}
	items, err := validateOrder(req)
	if err != nil {
		return nil, err
	}

	subtotal := 0.0
	for _, it := range items {
		subtotal += LineCost(it.Quantity)
	}

	now := s.now()
	o := &Order{
		ID:                newOrderID(),
		PrescriptionID:    strings.TrimSpace(req.PrescriptionID),
		PatientInfo:       req.PatientInfo,
		Medicines:         items,
		DeliveryAddress:   strings.TrimSpace(req.DeliveryAddress),
		ContactNumber:     strings.TrimSpace(req.ContactNumber),
		Status:            OrderStatusConfirmed,
		Subtotal:          round2(subtotal),
		DeliveryCharge:    DeliveryCharge,
		TotalAmount:       round2(subtotal + DeliveryCharge),
		EstimatedDelivery: now.AddDate(0, 0, deliveryDays).Format("2006-01-02"),
		CreatedAt:         now.UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	metrics.ObserveOrder(o.TotalAmount)
	s.logger.Info().
		Str("order_id", o.ID).
		Str("prescription_id", o.PrescriptionID).
		Float64("total", o.TotalAmount).
		Msg("order created")
	return o, nil
}

func validateOrder(req OrderRequest) ([]OrderItem, error) {
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, ValidationError("Delivery address is required")
	}
	if strings.TrimSpace(req.ContactNumber) == "" {
		return nil, ValidationError("Contact number is required")
	}
	if len(req.Medicines) == 0 {
		return nil, ValidationError("No medicines selected for order")
	}
	items := make([]OrderItem, 0, len(req.Medicines))
	for _, m := range req.Medicines {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, ValidationError("All medicines must have valid names")
		}
		qty := 1.0
		if m.Quantity != nil {
			qty = *m.Quantity
		}
		if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
			return nil, ValidationError("All medicines must have valid quantities")
		}
		items = append(items, OrderItem{Name: name, Dosage: strings.TrimSpace(m.Dosage), Quantity: qty})
	}
	return items, nil
}

// LineCost prices one order line: UnitPrice per unit, 10% off from five
// units and 5% off from three.
func LineCost(quantity float64) float64 {
	cost := UnitPrice * quantity
	switch {
	case quantity >= 5:
		cost *= 0.9
	case quantity >= 3:
		cost *= 0.95
	}
	return cost
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	return s.orders.List(ctx, limit, offset)
}

// -- Catalog --

func (s *Service) SearchMedicines(query string, limit int) ([]CatalogEntry, int) {
	return s.catalog.Search(query, limit)
}

func (s *Service) LookupMedicine(name string) (CatalogEntry, int, error) {
	return s.catalog.Lookup(name)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	prescriptions, err := s.prescriptions.Count(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalPrescriptionsAnalyzed: prescriptions,
		TotalOrdersCreated:         orders,
		MedicinesInDatabase:        s.catalog.Len(),
		AnalyzerStatus:             "ready",
		LLMAvailable:               s.llm != nil,
		Timestamp:                  s.now().UTC(),
	}, nil
}

func newPrescriptionID(now time.Time) string {
	return "RX" + now.Format("20060102150405") + uuid.New().String()[:8]
}

func newOrderID() string {
	return "ORD-" + strings.ToUpper(uuid.New().String()[:8])
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
