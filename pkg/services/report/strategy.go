package report

import (
	"fmt"
	"sync"

	"github.com/cloudlens/advisor/pkg/models/domain"
)

// Strategy shapes a report's recommendations into one document framing.
// Rendering is not a strategy concern; see pkg/services/render.
type Strategy interface {
	Type() domain.ReportType
	Build(ctx Context) domain.Document
}

type Config struct {
	// ExecutiveTopN caps the executive framing to the N highest-value items.
	ExecutiveTopN int
}

func DefaultConfig() Config {
	return Config{ExecutiveTopN: 5}
}

// StrategyFactory creates a strategy from the family configuration.
type StrategyFactory func(config Config) Strategy

// Registry manages the report type -> strategy mapping.
type Registry interface {
	Register(reportType domain.ReportType, factory StrategyFactory) error
	Create(reportType domain.ReportType) (Strategy, error)
	ListTypes() []domain.ReportType
}

type registry struct {
	mu        sync.RWMutex
	config    Config
	factories map[domain.ReportType]StrategyFactory
}

// NewRegistry creates a registry pre-populated with the five built-in
// strategies.
func NewRegistry(config Config) Registry {
	if config.ExecutiveTopN <= 0 {
		config = DefaultConfig()
	}
	r := &registry{
		config:    config,
		factories: make(map[domain.ReportType]StrategyFactory),
	}
	_ = r.Register(domain.ReportTypeDetailed, NewDetailedStrategy)
	_ = r.Register(domain.ReportTypeExecutive, NewExecutiveStrategy)
	_ = r.Register(domain.ReportTypeCost, NewCostStrategy)
	_ = r.Register(domain.ReportTypeSecurity, NewSecurityStrategy)
	_ = r.Register(domain.ReportTypeOperations, NewOperationsStrategy)
	return r
}

func (r *registry) Register(reportType domain.ReportType, factory StrategyFactory) error {
	if reportType == "" {
		return fmt.Errorf("report type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[reportType]; exists {
		return fmt.Errorf("report type %q is already registered", reportType)
	}
	r.factories[reportType] = factory
	return nil
}

func (r *registry) Create(reportType domain.ReportType) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[reportType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("report type %q is not registered", reportType)
	}
	return factory(r.config), nil
}

func (r *registry) ListTypes() []domain.ReportType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.ReportType, 0, len(r.factories))
	for reportType := range r.factories {
		types = append(types, reportType)
	}
	return types
}
