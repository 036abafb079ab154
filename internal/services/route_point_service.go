package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
	"tourbackend/internal/storage"
	"tourbackend/internal/utils"
)

const routePointPhotoDir = "route_points"

// RoutePointInput is a create/update request. Photo is nil when no file was sent.
type RoutePointInput struct {
	Description *string
	Order       *int
	Photo       io.Reader
}

type RoutePointService struct {
	Store       TxRunner
	RoutePoints RoutePointRepository
	Photos      PhotoStore
	Listing     ListingInvalidator
	RequestID   string
}

func (s RoutePointService) invalidate(ctx context.Context) {
	if s.Listing != nil {
		s.Listing.Invalidate(ctx)
	}
}

func (s RoutePointService) List(ctx context.Context) ([]RoutePointView, error) {
	points, err := s.RoutePoints.List(ctx, s.Store.Reader())
	if err != nil {
		return nil, err
	}
	out := make([]RoutePointView, 0, len(points))
	for _, p := range points {
		out = append(out, NewRoutePointView(p, s.Photos.URL))
	}
	return out, nil
}

func (s RoutePointService) Get(ctx context.Context, id int64) (RoutePointView, error) {
	p, err := s.RoutePoints.GetByID(ctx, s.Store.Reader(), id)
	if err != nil {
		return RoutePointView{}, err
	}
	return NewRoutePointView(p, s.Photos.URL), nil
}

func (s RoutePointService) Create(ctx context.Context, who domain.Identity, in RoutePointInput) (RoutePointView, error) {
	if err := requireAdmin(who); err != nil {
		return RoutePointView{}, err
	}
	if in.Description == nil {
		return RoutePointView{}, domain.ValidationError{Field: "description", Msg: "is required"}
	}
	desc, err := validateDescription(*in.Description)
	if err != nil {
		return RoutePointView{}, err
	}
	if in.Order != nil && *in.Order < 0 {
		return RoutePointView{}, domain.ValidationError{Field: "order", Msg: "must not be negative"}
	}

	q := s.Store.Reader()
	p := models.RoutePoint{Description: desc}
	if in.Order != nil {
		p.Order = *in.Order
	} else {
		next, err := s.RoutePoints.NextOrder(ctx, q)
		if err != nil {
			return RoutePointView{}, err
		}
		p.Order = next
	}
	if in.Photo != nil {
		rel, err := s.savePhoto(in.Photo)
		if err != nil {
			return RoutePointView{}, err
		}
		p.PhotoPath = rel
	}

	id, err := s.RoutePoints.Create(ctx, q, p)
	if err != nil {
		s.dropPhoto(p.PhotoPath)
		return RoutePointView{}, err
	}
	utils.LogEvent(s.RequestID, "route_point", "create", fmt.Sprintf("route_point_id=%d photo=%t", id, p.PhotoPath != ""))
	return s.Get(ctx, id)
}

// Update replaces present fields. A new photo replaces the stored one and the
// old file is removed once the row is saved.
func (s RoutePointService) Update(ctx context.Context, who domain.Identity, id int64, in RoutePointInput) (RoutePointView, error) {
	if err := requireAdmin(who); err != nil {
		return RoutePointView{}, err
	}
	q := s.Store.Reader()
	p, err := s.RoutePoints.GetByID(ctx, q, id)
	if err != nil {
		return RoutePointView{}, err
	}
	if in.Description != nil {
		desc, err := validateDescription(*in.Description)
		if err != nil {
			return RoutePointView{}, err
		}
		p.Description = desc
	}
	if in.Order != nil {
		if *in.Order < 0 {
			return RoutePointView{}, domain.ValidationError{Field: "order", Msg: "must not be negative"}
		}
		p.Order = *in.Order
	}
	oldPhoto := ""
	if in.Photo != nil {
		rel, err := s.savePhoto(in.Photo)
		if err != nil {
			return RoutePointView{}, err
		}
		oldPhoto = p.PhotoPath
		p.PhotoPath = rel
	}

	if err := s.RoutePoints.Update(ctx, q, p); err != nil {
		if in.Photo != nil {
			s.dropPhoto(p.PhotoPath)
		}
		return RoutePointView{}, err
	}
	s.dropPhoto(oldPhoto)
	s.invalidate(ctx)
	utils.LogEvent(s.RequestID, "route_point", "update", fmt.Sprintf("route_point_id=%d photo_replaced=%t", id, in.Photo != nil))
	return s.Get(ctx, id)
}

func (s RoutePointService) Delete(ctx context.Context, who domain.Identity, id int64) error {
	if err := requireAdmin(who); err != nil {
		return err
	}
	q := s.Store.Reader()
	p, err := s.RoutePoints.GetByID(ctx, q, id)
	if err != nil {
		return err
	}
	if err := s.RoutePoints.Delete(ctx, q, id); err != nil {
		return err
	}
	s.dropPhoto(p.PhotoPath)
	s.invalidate(ctx)
	utils.LogEvent(s.RequestID, "route_point", "delete", fmt.Sprintf("route_point_id=%d", id))
	return nil
}

func (s RoutePointService) savePhoto(r io.Reader) (string, error) {
	rel, err := s.Photos.SavePhoto(r, routePointPhotoDir)
	switch {
	case err == nil:
		return rel, nil
	case errors.Is(err, storage.ErrFileTooLarge), errors.Is(err, storage.ErrUnsupportedImage):
		return "", domain.ValidationError{Field: "photo", Msg: err.Error(), Err: err}
	default:
		return "", domain.InternalError{Msg: "store photo failed", Err: err}
	}
}

func (s RoutePointService) dropPhoto(rel string) {
	if rel == "" {
		return
	}
	if err := s.Photos.Delete(rel); err != nil {
		utils.LogEvent(s.RequestID, "route_point", "photo_delete_failed", err.Error())
	}
}
