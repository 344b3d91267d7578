package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/claimlab/annotation-backend/internal/config"
	"github.com/claimlab/annotation-backend/internal/dataset"
	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/session"
	"github.com/claimlab/annotation-backend/internal/storage"
)

// AnnotationService wires the allow-list, dataset assignments, storage
// and the per-annotator session registry together for the handlers.
type AnnotationService struct {
	cfg      *config.Config
	catalog  *dataset.Catalog
	store    *storage.Store
	registry *session.Registry
	log      *logger.Logger
}

func NewAnnotationService(cfg *config.Config, catalog *dataset.Catalog, store *storage.Store, registry *session.Registry, log *logger.Logger) *AnnotationService {
	return &AnnotationService{
		cfg:      cfg,
		catalog:  catalog,
		store:    store,
		registry: registry,
		log:      log.With("service", "AnnotationService"),
	}
}

// Login validates the annotator against the allow-list, loads the
// assigned dataset and opens a fresh session. Returns the bearer token
// for subsequent requests.
func (s *AnnotationService) Login(ctx context.Context, annotatorID string) (string, *session.Session, error) {
	annotatorID = strings.TrimSpace(annotatorID)
	if !s.cfg.IsValidAnnotator(annotatorID) {
		return "", nil, &config.ConfigurationError{
			Setting:     "annotator_id",
			Remediation: fmt.Sprintf("use one of: %s", strings.Join(s.cfg.Annotators, ", ")),
		}
	}

	assignment, err := s.cfg.AssignmentFor(annotatorID)
	if err != nil {
		return "", nil, err
	}
	items, err := s.catalog.Items(assignment.DatasetFile)
	if err != nil {
		return "", nil, fmt.Errorf("load assigned dataset: %w", err)
	}

	sess, err := session.New(ctx, annotatorID, items, assignment.ImagesDir, s.store, s.log)
	if err != nil {
		return "", nil, err
	}
	token := s.registry.Add(sess)
	return token, sess, nil
}

// Resolve maps a bearer token back to its session.
func (s *AnnotationService) Resolve(token string) (*session.Session, error) {
	return s.registry.Get(token)
}

func (s *AnnotationService) Logout(token string) {
	s.registry.Remove(token)
}

// StorageStatus runs the backend reachability diagnostics.
func (s *AnnotationService) StorageStatus(ctx context.Context) map[string]bool {
	return s.store.Status(ctx)
}

func (s *AnnotationService) PrimaryStorage() string {
	return s.store.PrimaryName()
}

// Guidelines returns the annotation guideline text.
func (s *AnnotationService) Guidelines() (string, error) {
	data, err := os.ReadFile(s.cfg.GuidelinesFile)
	if err != nil {
		return "", fmt.Errorf("read guidelines %s: %w", s.cfg.GuidelinesFile, err)
	}
	// The guideline markdown uses <br> for hard breaks in some cells.
	return strings.ReplaceAll(string(data), "<br>", "\n"), nil
}

// ImagePath resolves an image reference inside the session's assigned
// images directory. The image id is reduced to its base name so a
// malformed reference cannot escape the directory; a missing file is a
// per-item data problem, surfaced inline without aborting the session.
func (s *AnnotationService) ImagePath(sess *session.Session, imageID string) (string, error) {
	name := filepath.Base(imageID)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid image reference %q", imageID)
	}
	path := filepath.Join(sess.ImagesDir(), name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("image %s not available: %w", name, err)
	}
	return path, nil
}
