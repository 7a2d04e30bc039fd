package service

import (
	"context"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/spot"
)

type ReferenceService struct {
	repo        repository.ReferenceRepository
	itineraries *ItineraryService
}

func NewReferenceService(repo repository.ReferenceRepository, itineraries *ItineraryService) *ReferenceService {
	return &ReferenceService{repo: repo, itineraries: itineraries}
}

func toContent(preamble string, sections []domain.SpotSection) spot.Content {
	c := spot.Content{Preamble: preamble}
	for _, s := range sections {
		c.Sections = append(c.Sections, spot.Section{Name: s.Name, Body: s.Body})
	}
	return c
}

func assemble(c spot.Content) (string, error) {
	if err := c.Validate(); err != nil {
		return "", invalid("sections", err.Error())
	}
	return c.String(), nil
}

// present expands a stored reference with its parsed spot content and the
// links found in it.
func present(ref *domain.Reference) *domain.ReferenceResponse {
	resp := &domain.ReferenceResponse{Reference: *ref}
	if ref.Kind != domain.ReferenceKindSpot {
		return resp
	}
	c := spot.Parse(ref.Content)
	resp.Preamble = c.Preamble
	for _, s := range c.Sections {
		resp.Sections = append(resp.Sections, domain.SpotSection{Name: s.Name, Body: s.Body})
	}
	resp.Links = spot.Links(ref.Content)
	return resp
}

func (s *ReferenceService) Create(ctx context.Context, userID, itineraryID string, req *domain.CreateReferenceRequest) (*domain.ReferenceResponse, error) {
	ref := &domain.Reference{Kind: req.Kind, Title: strings.TrimSpace(req.Title)}
	if ref.Title == "" {
		return nil, invalid("title", "is required")
	}

	switch req.Kind {
	case domain.ReferenceKindLink:
		if req.URL == "" {
			return nil, invalid("url", "is required for links")
		}
		ref.URL = req.URL
	case domain.ReferenceKindSpot:
		content, err := assemble(toContent(req.Preamble, req.Sections))
		if err != nil {
			return nil, err
		}
		ref.Content = content
	default:
		return nil, invalid("kind", "must be link or spot")
	}

	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, userID, itineraryID, ref)
	if err != nil {
		return nil, err
	}
	return present(created), nil
}

func (s *ReferenceService) Get(ctx context.Context, userID, itineraryID, id string) (*domain.ReferenceResponse, error) {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}
	ref, err := s.repo.Get(ctx, userID, itineraryID, id)
	if err != nil {
		return nil, translate(err)
	}
	return present(ref), nil
}

func (s *ReferenceService) List(ctx context.Context, userID, itineraryID string) ([]*domain.ReferenceResponse, error) {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}
	refs, err := s.repo.List(ctx, userID, itineraryID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ReferenceResponse, 0, len(refs))
	for i := range refs {
		out = append(out, present(&refs[i]))
	}
	return out, nil
}

// Update changes title and url, and for spots replaces the preamble or the
// section list while keeping whichever part was not sent.
func (s *ReferenceService) Update(ctx context.Context, userID, itineraryID, id string, req *domain.UpdateReferenceRequest) (*domain.ReferenceResponse, error) {
	ref, err := s.Get(ctx, userID, itineraryID, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, invalid("title", "cannot be empty")
		}
		fields["title"] = title
	}
	if req.URL != nil {
		if ref.Kind != domain.ReferenceKindLink {
			return nil, invalid("url", "only links have a url")
		}
		fields["url"] = *req.URL
	}
	if req.Preamble != nil || req.Sections != nil {
		if ref.Kind != domain.ReferenceKindSpot {
			return nil, invalid("sections", "only spots have sections")
		}
		preamble, sections := ref.Preamble, ref.Sections
		if req.Preamble != nil {
			preamble = *req.Preamble
		}
		if req.Sections != nil {
			sections = *req.Sections
		}
		content, err := assemble(toContent(preamble, sections))
		if err != nil {
			return nil, err
		}
		fields["content"] = content
	}
	if len(fields) == 0 {
		return ref, nil
	}

	updated, err := s.repo.Update(ctx, userID, itineraryID, id, fields)
	if err != nil {
		return nil, translate(err)
	}
	return present(updated), nil
}

func (s *ReferenceService) Delete(ctx context.Context, userID, itineraryID, id string) error {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return err
	}
	return translate(s.repo.Delete(ctx, userID, itineraryID, id))
}
