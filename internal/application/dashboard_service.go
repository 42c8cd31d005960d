package application

import (
	"context"
	"strings"

	"github.com/danu-shop/insights/internal/analytics"
	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
	"github.com/danu-shop/insights/pkg/logging"
)

// DeliveryDashboardDTO is the delivery dashboard for one filter selection
type DeliveryDashboardDTO struct {
	Filter DeliveryKPIQuery        `json:"filter"`
	Cached bool                    `json:"cached"`
	KPIs   analytics.DeliveryKPIs `json:"kpis"`
}

// ProjectionDashboardDTO is the projection dashboard for one filter selection
type ProjectionDashboardDTO struct {
	Filter ProjectionKPIQuery        `json:"filter"`
	Cached bool                      `json:"cached"`
	KPIs   analytics.ProjectionKPIs `json:"kpis"`
}

// DashboardService computes the indicators shown by the delivery and projection dashboards
type DashboardService struct {
	datasets  *Datasets
	kpis      *Memo
	baselines analytics.Baselines
	logger    *logging.Logger
}

// NewDashboardService creates a dashboard service
func NewDashboardService(datasets *Datasets, kpis *Memo, baselines analytics.Baselines, logger *logging.Logger) *DashboardService {
	return &DashboardService{
		datasets:  datasets,
		kpis:      kpis,
		baselines: baselines,
		logger:    logger.WithComponent("dashboard"),
	}
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "all"
	}
	return v
}

// DeliveryKPIs evaluates the delivery dashboard for the selected category, state and tier
func (s *DashboardService) DeliveryKPIs(ctx context.Context, query DeliveryKPIQuery) (*DeliveryDashboardDTO, error) {
	tier, err := domain.ParseTierFilter(query.Tier)
	if err != nil {
		return nil, err
	}
	query = DeliveryKPIQuery{Category: normalize(query.Category), State: normalize(query.State), Tier: string(tier)}

	loaded, err := s.datasets.Load(ctx, DatasetDelivery)
	if err != nil {
		return nil, err
	}
	key := strings.Join([]string{DatasetDelivery, loaded.Signature, query.Category, query.State, tier.Key()}, "|")
	kpis, cached, err := Remember(s.kpis, key, func() (analytics.DeliveryKPIs, error) {
		return analytics.ComputeDeliveryKPIs(loaded.Table, analytics.DeliveryFilter{
			Category: query.Category,
			State:    query.State,
			Tier:     tier,
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return &DeliveryDashboardDTO{Filter: query, Cached: cached, KPIs: kpis}, nil
}

// ProjectionKPIs evaluates the projection dashboard for the selected category group, region and tier
func (s *DashboardService) ProjectionKPIs(ctx context.Context, query ProjectionKPIQuery) (*ProjectionDashboardDTO, error) {
	tier, err := domain.ParseTierFilter(query.Tier)
	if err != nil {
		return nil, err
	}
	query = ProjectionKPIQuery{Category: normalize(query.Category), Region: normalize(query.Region), Tier: string(tier)}

	loaded, err := s.datasets.Load(ctx, DatasetProjection)
	if err != nil {
		return nil, err
	}
	key := strings.Join([]string{DatasetProjection, loaded.Signature, query.Category, query.Region, tier.Key()}, "|")
	kpis, cached, err := Remember(s.kpis, key, func() (analytics.ProjectionKPIs, error) {
		return analytics.ComputeProjectionKPIs(loaded.Table, analytics.ProjectionFilter{
			Category: query.Category,
			Region:   query.Region,
			Tier:     tier,
		}, s.baselines), nil
	})
	if err != nil {
		return nil, err
	}
	return &ProjectionDashboardDTO{Filter: query, Cached: cached, KPIs: kpis}, nil
}

// Profile summarizes the columns of a configured dataset
func (s *DashboardService) Profile(ctx context.Context, query ProfileQuery) (*dataset.Profile, error) {
	if _, err := s.datasets.Path(query.Dataset); err != nil {
		return nil, err
	}
	loaded, err := s.datasets.Load(ctx, query.Dataset)
	if err != nil {
		return nil, err
	}
	profile := dataset.ProfileTable(loaded.Table)
	return &profile, nil
}

// FilterOptions lists the selector values of both dashboards. A dataset that
// cannot be loaded leaves its selectors empty as long as the other one loads.
func (s *DashboardService) FilterOptions(ctx context.Context) (*analytics.FilterOptions, error) {
	log := s.logger.WithContext(ctx)

	delivery, derr := s.datasets.Load(ctx, DatasetDelivery)
	projection, perr := s.datasets.Load(ctx, DatasetProjection)
	if derr != nil && perr != nil {
		return nil, derr
	}

	var deliveryTable, projectionTable *domain.Table
	if derr != nil {
		log.WithError(derr).Warn("Delivery dataset unavailable for filter options")
	} else {
		deliveryTable = delivery.Table
	}
	if perr != nil {
		log.WithError(perr).Warn("Projection dataset unavailable for filter options")
	} else {
		projectionTable = projection.Table
	}

	options := analytics.Options(deliveryTable, projectionTable)
	return &options, nil
}
