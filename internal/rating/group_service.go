package rating

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"telecom-rating/internal/apperr"
	"telecom-rating/internal/auth"
)

// GroupService manages destination groups, a lookup dictionary used to tag
// rates for reporting.
type GroupService struct {
	base
	repo Repository
}

func NewGroupService(repo Repository, opts Options) *GroupService {
	return &GroupService{base: newBase(opts), repo: repo}
}

var (
	errGroupNotFound  = apperr.NotFound("destination_group_not_found", "destination group not found")
	errGroupNameTaken = apperr.BusinessLogic("name_exists", "a destination group with this name already exists")
)

func (s *GroupService) List(ctx context.Context, activeOnly bool) ([]DestinationGroup, error) {
	groups, err := s.repo.ListGroups(ctx, activeOnly)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list destination groups: %w", err))
	}
	if groups == nil {
		groups = []DestinationGroup{}
	}
	return groups, nil
}

func (s *GroupService) Get(ctx context.Context, id int64) (DestinationGroup, error) {
	g, ok, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return DestinationGroup{}, apperr.Internal(fmt.Errorf("get destination group: %w", err))
	}
	if !ok {
		return DestinationGroup{}, errGroupNotFound
	}
	return g, nil
}

func (s *GroupService) Create(ctx context.Context, actor auth.Info, req DestinationGroupRequest) (DestinationGroup, error) {
	req = normalizeGroupRequest(req)
	if err := validateGroupRequest(req); err != nil {
		return DestinationGroup{}, err
	}
	if _, ok, err := s.repo.GetGroupByName(ctx, req.Name); err != nil {
		return DestinationGroup{}, apperr.Internal(fmt.Errorf("lookup destination group name: %w", err))
	} else if ok {
		return DestinationGroup{}, errGroupNameTaken
	}

	now := s.now()
	g := DestinationGroup{
		Name:      req.Name,
		Names:     copyNames(req.Names),
		IsActive:  req.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertGroup(ctx, &g); err != nil {
		return DestinationGroup{}, groupStoreError("insert destination group", err)
	}
	s.record(ctx, Change{Action: "create", EntityType: "destination_group", EntityRef: strconv.FormatInt(g.ID, 10), Actor: actor, Message: g.Name})
	return g, nil
}

func (s *GroupService) Update(ctx context.Context, actor auth.Info, id int64, req DestinationGroupRequest) (DestinationGroup, error) {
	g, ok, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return DestinationGroup{}, apperr.Internal(fmt.Errorf("get destination group: %w", err))
	}
	if !ok {
		return DestinationGroup{}, errGroupNotFound
	}
	req = normalizeGroupRequest(req)
	if err := validateGroupRequest(req); err != nil {
		return DestinationGroup{}, err
	}
	other, ok, err := s.repo.GetGroupByName(ctx, req.Name)
	if err != nil {
		return DestinationGroup{}, apperr.Internal(fmt.Errorf("lookup destination group name: %w", err))
	}
	if ok && other.ID != g.ID {
		return DestinationGroup{}, errGroupNameTaken
	}

	g.Name = req.Name
	g.Names = copyNames(req.Names)
	g.IsActive = req.IsActive
	g.UpdatedAt = s.now()
	if err := s.repo.UpdateGroup(ctx, &g); err != nil {
		return DestinationGroup{}, groupStoreError("update destination group", err)
	}
	s.record(ctx, Change{Action: "update", EntityType: "destination_group", EntityRef: strconv.FormatInt(g.ID, 10), Actor: actor, Message: g.Name})
	return g, nil
}

// Delete removes the group. Rates tagged with it keep existing, untagged.
func (s *GroupService) Delete(ctx context.Context, actor auth.Info, id int64) error {
	g, ok, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return apperr.Internal(fmt.Errorf("get destination group: %w", err))
	}
	if !ok {
		return errGroupNotFound
	}
	if err := s.repo.DeleteGroup(ctx, g.ID); err != nil {
		return groupStoreError("delete destination group", err)
	}
	s.record(ctx, Change{Action: "delete", EntityType: "destination_group", EntityRef: strconv.FormatInt(g.ID, 10), Actor: actor, Message: g.Name})
	return nil
}

func copyNames(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func groupStoreError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return errGroupNotFound
	case errors.Is(err, ErrDuplicateName):
		return errGroupNameTaken
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
}
