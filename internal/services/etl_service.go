package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/models"
	"liliapp-bi-service/internal/store"
)

// Strategy selects the target document model of an ETL run.
type Strategy string

const (
	// StrategyNormalized loads users/profiles/addresses as separate
	// documents and subcollections (orders) or variants/subcategories as
	// subcollections (products).
	StrategyNormalized Strategy = "normalized"
	// StrategyHybrid embeds variants and subcategories as arrays on the
	// service document instead of subcollections. Products only.
	StrategyHybrid Strategy = "hybrid"
	// StrategyCustomer loads the denormalized customer-centric documents
	// instead of the user/profile/address split. Orders only.
	StrategyCustomer Strategy = "customer"
)

// RunOptions tunes one ETL run. TestRun restricts the run to the first few
// extracted records so a load can be rehearsed against production data.
type RunOptions struct {
	TestRun  bool     `json:"testRun"`
	Strategy Strategy `json:"strategy"`
	Status   string   `json:"status"`
}

// RunReport is the outcome of one ETL run.
type RunReport struct {
	Entity     string       `json:"entity"`
	Strategy   Strategy     `json:"strategy"`
	Extracted  int          `json:"extracted"`
	Processed  int          `json:"processed"`
	Skipped    int          `json:"skipped"`
	Loads      []LoadReport `json:"loads"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// SourceClient is the slice of the upstream API the ETL consumes.
type SourceClient interface {
	FetchAllOrders(ctx context.Context, status string) ([]models.RawOrder, error)
	FetchAllProducts(ctx context.Context, status string) ([]models.RawProduct, error)
}

// EventPublisher broadcasts run lifecycle events. Implementations must not
// block the pipeline.
type EventPublisher interface {
	Publish(subject string, payload interface{}) error
}

// ETLService orchestrates extract-transform-load runs from the commerce
// API into the document store.
type ETLService struct {
	source       SourceClient
	store        store.Store
	mapper       *SchemaMapper
	reconciler   *Reconciler
	loader       *LoaderService
	events       EventPublisher
	testRunLimit int
	logger       *logrus.Entry
}

// NewETLService wires an ETL orchestrator. events may be nil when no
// broker is configured.
func NewETLService(source SourceClient, s store.Store, mapper *SchemaMapper, reconciler *Reconciler, loader *LoaderService, events EventPublisher, testRunLimit int, logger *logrus.Logger) *ETLService {
	if testRunLimit <= 0 {
		testRunLimit = 10
	}
	return &ETLService{
		source:       source,
		store:        s,
		mapper:       mapper,
		reconciler:   reconciler,
		loader:       loader,
		events:       events,
		testRunLimit: testRunLimit,
		logger:       logger.WithField("component", "etl"),
	}
}

// RunOrdersETL extracts paid orders from the source, fans them out into the
// chosen document model and loads the result idempotently.
func (s *ETLService) RunOrdersETL(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyNormalized
	}
	if opts.Status == "" {
		opts.Status = "paid"
	}
	report := &RunReport{Entity: "orders", Strategy: opts.Strategy, StartedAt: time.Now()}

	raw, err := s.source.FetchAllOrders(ctx, opts.Status)
	if err != nil {
		return nil, err
	}
	report.Extracted = len(raw)
	raw = limitForTestRun(raw, opts.TestRun, s.testRunLimit)

	s.logger.WithFields(logrus.Fields{
		"extracted": report.Extracted,
		"processed": len(raw),
		"strategy":  opts.Strategy,
		"testRun":   opts.TestRun,
	}).Info("orders extraction finished")

	switch opts.Strategy {
	case StrategyCustomer:
		err = s.loadCustomerModel(ctx, raw, report)
	default:
		err = s.loadNormalizedModel(ctx, raw, report)
	}
	if err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now()
	s.publish("etl.orders.completed", report)
	return report, nil
}

func (s *ETLService) loadNormalizedModel(ctx context.Context, raw []models.RawOrder, report *RunReport) error {
	existingUsers, err := s.store.GetAll(ctx, "users")
	if err != nil {
		return err
	}
	existingEmails := make(map[string]struct{}, len(existingUsers))
	for _, u := range existingUsers {
		if email, ok := u.Data["email"].(string); ok && email != "" {
			existingEmails[email] = struct{}{}
		}
	}

	var mapped []*MappedOrder
	for _, r := range raw {
		m, ok := s.mapper.MapOrder(r)
		if !ok {
			report.Skipped++
			continue
		}
		mapped = append(mapped, m)
	}
	batch := s.reconciler.ReconcileOrders(mapped, existingEmails)
	report.Processed = len(batch.Orders)

	users := make([]map[string]interface{}, 0, len(batch.Users))
	for i := range batch.Users {
		users = append(users, batch.Users[i].ToDoc())
	}
	profiles := make([]map[string]interface{}, 0, len(batch.Profiles))
	for i := range batch.Profiles {
		profiles = append(profiles, batch.Profiles[i].ToDoc())
	}
	addresses := make([]map[string]interface{}, 0, len(batch.Addresses))
	for i := range batch.Addresses {
		addresses = append(addresses, batch.Addresses[i].ToDoc())
	}
	orders := make([]map[string]interface{}, 0, len(batch.Orders))
	for i := range batch.Orders {
		orders = append(orders, batch.Orders[i].ToDoc())
	}

	loads := []func() (*LoadReport, error){
		func() (*LoadReport, error) { return s.loader.Upsert(ctx, "users", users, "id", true) },
		func() (*LoadReport, error) {
			return s.loader.UpsertNested(ctx, "users/%s/customer_profiles", profiles, "userId", "id", true)
		},
		func() (*LoadReport, error) {
			return s.loader.UpsertNested(ctx, "users/%[1]s/customer_profiles/%[1]s/addresses", addresses, "ownerId", "id", true)
		},
		func() (*LoadReport, error) { return s.loader.Upsert(ctx, "orders", orders, "id", true) },
	}
	for _, load := range loads {
		lr, err := load()
		if err != nil {
			return err
		}
		report.Loads = append(report.Loads, *lr)
	}
	return nil
}

func (s *ETLService) loadCustomerModel(ctx context.Context, raw []models.RawOrder, report *RunReport) error {
	var mappedCustomers []*models.Customer
	var mappedOrders []*MappedOrder
	for _, r := range raw {
		customer, ok := s.mapper.MapOrderToCustomer(r)
		if !ok {
			report.Skipped++
			continue
		}
		mappedCustomers = append(mappedCustomers, customer)
		if m, ok := s.mapper.MapOrder(r); ok {
			mappedOrders = append(mappedOrders, m)
		}
	}
	customers := s.reconciler.ReconcileCustomers(mappedCustomers)
	report.Processed = len(mappedOrders)

	customersReport, err := s.loader.LoadCustomers(ctx, customers)
	if err != nil {
		return err
	}
	report.Loads = append(report.Loads, *customersReport)

	orders := make([]map[string]interface{}, 0, len(mappedOrders))
	for _, m := range mappedOrders {
		orders = append(orders, m.Order.ToDoc())
	}
	ordersReport, err := s.loader.Upsert(ctx, "orders", orders, "id", true)
	if err != nil {
		return err
	}
	report.Loads = append(report.Loads, *ordersReport)
	return nil
}

// RunProductsETL extracts available products and loads the catalog:
// categories first so services can reference them, then services and their
// children.
func (s *ETLService) RunProductsETL(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyNormalized
	}
	if opts.Status == "" {
		opts.Status = "available"
	}
	report := &RunReport{Entity: "products", Strategy: opts.Strategy, StartedAt: time.Now()}

	raw, err := s.source.FetchAllProducts(ctx, opts.Status)
	if err != nil {
		return nil, err
	}
	report.Extracted = len(raw)
	raw = limitForTestRun(raw, opts.TestRun, s.testRunLimit)

	mapped := make([]MappedProduct, 0, len(raw))
	for _, r := range raw {
		mapped = append(mapped, s.mapper.MapProduct(r))
	}
	batch := s.reconciler.ReconcileProducts(mapped)
	report.Processed = len(batch.Services)

	categories := make([]map[string]interface{}, 0, len(batch.Categories))
	for i := range batch.Categories {
		categories = append(categories, batch.Categories[i].ToDoc())
	}
	categoriesReport, err := s.loader.Upsert(ctx, "categories", categories, "id", true)
	if err != nil {
		return nil, err
	}
	report.Loads = append(report.Loads, *categoriesReport)

	services := make([]map[string]interface{}, 0, len(batch.Services))
	if opts.Strategy == StrategyHybrid {
		// hybrid model: children travel inside the service document
		for i := range mapped {
			doc := mapped[i].Service.ToDoc()
			variants := make([]map[string]interface{}, 0, len(mapped[i].Variants))
			for j := range mapped[i].Variants {
				v := mapped[i].Variants[j].ToDoc()
				delete(v, "serviceId")
				variants = append(variants, v)
			}
			subcategories := make([]map[string]interface{}, 0, len(mapped[i].Subcategories))
			for j := range mapped[i].Subcategories {
				sc := mapped[i].Subcategories[j].ToDoc()
				delete(sc, "serviceId")
				subcategories = append(subcategories, sc)
			}
			doc["variants"] = variants
			doc["subcategories"] = subcategories
			services = append(services, doc)
		}
	} else {
		for i := range batch.Services {
			services = append(services, batch.Services[i].ToDoc())
		}
	}
	servicesReport, err := s.loader.Upsert(ctx, "services", services, "id", true)
	if err != nil {
		return nil, err
	}
	report.Loads = append(report.Loads, *servicesReport)

	if opts.Strategy != StrategyHybrid {
		variants := make([]map[string]interface{}, 0, len(batch.Variants))
		for i := range batch.Variants {
			variants = append(variants, batch.Variants[i].ToDoc())
		}
		variantsReport, err := s.loader.UpsertNested(ctx, "services/%s/variants", variants, "serviceId", "id", true)
		if err != nil {
			return nil, err
		}
		report.Loads = append(report.Loads, *variantsReport)

		subcategories := make([]map[string]interface{}, 0, len(batch.Subcategories))
		for i := range batch.Subcategories {
			subcategories = append(subcategories, batch.Subcategories[i].ToDoc())
		}
		subcategoriesReport, err := s.loader.UpsertNested(ctx, "services/%s/subcategories", subcategories, "serviceId", "id", true)
		if err != nil {
			return nil, err
		}
		report.Loads = append(report.Loads, *subcategoriesReport)
	}

	report.FinishedAt = time.Now()
	s.publish("etl.products.completed", report)
	return report, nil
}

// limitForTestRun truncates the extracted records when a rehearsal run is
// requested, so a load can be validated without touching the whole catalog.
func limitForTestRun[T any](raw []T, testRun bool, limit int) []T {
	if testRun && len(raw) > limit {
		return raw[:limit]
	}
	return raw
}

func (s *ETLService) publish(subject string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, payload); err != nil {
		s.logger.WithError(err).Warn("event publish failed")
	}
}
