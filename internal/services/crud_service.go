package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/store"
)

// collectionPatterns are the collection paths the CRUD surface may touch.
// Anything else is rejected before the store sees it.
var collectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(services|categories|customers|users|orders)$`),
	regexp.MustCompile(`^services/[^/]+/(variants|subcategories)$`),
	regexp.MustCompile(`^users/[^/]+/customer_profiles$`),
	regexp.MustCompile(`^users/[^/]+/customer_profiles/[^/]+/addresses$`),
}

// CRUDService is the generic document CRUD layer behind the admin
// endpoints. It validates paths and IDs before any store mutation.
type CRUDService struct {
	store  store.Store
	logger *logrus.Entry
}

// NewCRUDService creates the CRUD layer.
func NewCRUDService(s store.Store, logger *logrus.Logger) *CRUDService {
	return &CRUDService{store: s, logger: logger.WithField("component", "crud")}
}

// List returns every document of a collection with its ID injected.
func (c *CRUDService) List(ctx context.Context, path string) ([]map[string]interface{}, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	docs, err := c.store.GetAll(ctx, path)
	if err != nil {
		return nil, err
	}
	return documentsData(docs), nil
}

// Get returns one document by ID.
func (c *CRUDService) Get(ctx context.Context, path, id string) (map[string]interface{}, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	doc, err := c.store.GetDocument(ctx, path, id)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	return doc, nil
}

// Create stores a new document. When the body carries no ID a random one
// is assigned. An ID that already exists is rejected.
func (c *CRUDService) Create(ctx context.Context, path string, body map[string]interface{}) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", &apperrors.ValidationError{Msg: "request body is empty"}
	}

	id := ""
	if raw, ok := body["id"]; ok {
		id = fmt.Sprint(raw)
		delete(body, "id")
	}
	if id == "" {
		generated, err := c.store.CreateDocument(ctx, path, body)
		if err != nil {
			return "", err
		}
		c.logger.WithFields(logrus.Fields{"path": path, "id": generated}).Info("document created")
		return generated, nil
	}

	if _, err := c.store.GetDocument(ctx, path, id); err == nil {
		return "", &apperrors.ValidationError{Msg: fmt.Sprintf("document %s/%s already exists", path, id)}
	} else if !apperrors.IsNotFound(err) {
		return "", err
	}
	if err := c.store.SetDocument(ctx, path, id, body, false); err != nil {
		return "", err
	}
	c.logger.WithFields(logrus.Fields{"path": path, "id": id}).Info("document created")
	return id, nil
}

// Update merges the body into an existing document. A body ID that
// contradicts the path ID is rejected before any write.
func (c *CRUDService) Update(ctx context.Context, path, id string, body map[string]interface{}) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if len(body) == 0 {
		return &apperrors.ValidationError{Msg: "request body is empty"}
	}
	if raw, ok := body["id"]; ok {
		if bodyID := fmt.Sprint(raw); bodyID != id {
			return &apperrors.ValidationError{Msg: fmt.Sprintf("body id %q does not match path id %q", bodyID, id)}
		}
		delete(body, "id")
	}

	if _, err := c.store.GetDocument(ctx, path, id); err != nil {
		return err
	}
	if err := c.store.SetDocument(ctx, path, id, body, true); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{"path": path, "id": id}).Info("document updated")
	return nil
}

// Delete removes one document. Deleting an absent document is an error so
// the dashboard can distinguish typos from successes.
func (c *CRUDService) Delete(ctx context.Context, path, id string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if _, err := c.store.GetDocument(ctx, path, id); err != nil {
		return err
	}
	if err := c.store.DeleteDocument(ctx, path, id); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{"path": path, "id": id}).Info("document deleted")
	return nil
}

func validatePath(path string) error {
	trimmed := strings.Trim(path, "/")
	for _, pattern := range collectionPatterns {
		if pattern.MatchString(trimmed) {
			return nil
		}
	}
	return &apperrors.ValidationError{Msg: fmt.Sprintf("unknown collection path %q", path)}
}
