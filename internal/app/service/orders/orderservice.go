// Package orderservice implements the work-order operations: scoped reads,
// creation with identifier assignment, partial updates, guarded status
// changes, bulk status changes, image attachment and deletion.
//
// Every read and write goes through orderpolicy.Within so the access rule
// lives in one place.
package orderservice

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/policy/orderpolicy"
	counterstore "github.com/dalemusser/confinedspace/internal/app/store/counters"
	orderstore "github.com/dalemusser/confinedspace/internal/app/store/orders"
	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/orderids"
	"github.com/dalemusser/confinedspace/internal/app/system/paging"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultExportLimit caps Export when the caller passes no limit.
const DefaultExportLimit = 5000

// Service is safe for concurrent use.
type Service struct {
	orders *orderstore.Store
	ids    *orderids.Assigner
	policy *orderpolicy.Policy
	log    *zap.Logger
	now    func() time.Time
}

// New wires a Service to db.
func New(db *mongo.Database, logger *zap.Logger) *Service {
	return &Service{
		orders: orderstore.New(db),
		ids:    orderids.NewAssigner(counterstore.New(db)),
		policy: orderpolicy.Default,
		log:    logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetPolicy swaps the access policy (for a different technician matcher).
func (s *Service) SetPolicy(p *orderpolicy.Policy) {
	if p != nil {
		s.policy = p
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Reads                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// Get returns the order identified by ident (ObjectID hex, uniqueId,
// internalId or workOrderId) if the caller may see it. An order outside the
// caller's scope is reported as apperr.ErrNotFound, same as a missing one.
func (s *Service) Get(ctx context.Context, caller orderpolicy.Caller, ident string) (models.Order, error) {
	if ident == "" {
		return models.Order{}, apperr.ErrNotFound
	}
	o, err := s.orders.FindOne(ctx, s.policy.Within(caller, orderstore.IdentFilter(ident)))
	if err != nil {
		return models.Order{}, apperr.Persistence("find order", err)
	}
	return o, nil
}

// List returns one page of the caller's visible orders matching f.
func (s *Service) List(ctx context.Context, caller orderpolicy.Caller, f Filters, pg paging.Page, sort paging.Sort) (ListResult, error) {
	filter := s.policy.Within(caller, f.Doc())
	pg = pg.Normalize(paging.MaxLimit)

	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return ListResult{}, apperr.Persistence("count orders", err)
	}

	items, err := s.orders.Find(ctx, filter, findOptions(pg, sort))
	if err != nil {
		return ListResult{}, apperr.Persistence("list orders", err)
	}

	return ListResult{
		Items:      items,
		Page:       pg.Number,
		Limit:      pg.Limit,
		TotalPages: paging.TotalPages(total, pg.Limit),
		TotalItems: total,
	}, nil
}

// Export returns up to limit visible orders matching f, unpaged.
func (s *Service) Export(ctx context.Context, caller orderpolicy.Caller, f Filters, sort paging.Sort, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = DefaultExportLimit
	}
	opts := findOptions(paging.Page{Number: 1, Limit: limit}, sort)
	items, err := s.orders.Find(ctx, s.policy.Within(caller, f.Doc()), opts)
	if err != nil {
		return nil, apperr.Persistence("export orders", err)
	}
	return items, nil
}

// Summary counts the caller's visible orders per status.
func (s *Service) Summary(ctx context.Context, caller orderpolicy.Caller) (Summary, error) {
	counts, err := s.orders.StatusCounts(ctx, s.policy.Scope(caller))
	if err != nil {
		return Summary{}, apperr.Persistence("summarize orders", err)
	}
	out := Summary{ByStatus: make(map[models.OrderStatus]int64, len(models.AllOrderStatuses))}
	for _, st := range models.AllOrderStatuses {
		out.ByStatus[st] = counts[st]
		out.Total += counts[st]
	}
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Writes                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Create validates in, assigns identifiers and stores the new order with a
// single "created" history entry.
func (s *Service) Create(ctx context.Context, caller orderpolicy.Caller, in models.OrderInput) (models.Order, error) {
	in = in.Normalize()
	if err := validate(in); err != nil {
		return models.Order{}, err
	}
	o, err := in.ToOrder()
	if err != nil {
		return models.Order{}, apperr.Invalid("dateOfSurvey", err.Error())
	}
	sanitizeOrder(&o)

	now := s.now()
	ids, err := s.ids.Assign(ctx, now)
	if err != nil {
		return models.Order{}, apperr.Persistence("assign identifiers", err)
	}

	actor := caller.DisplayName()
	o.InternalID = ids.InternalID
	o.UniqueID = ids.UniqueID
	o.WorkOrderID = ids.WorkOrderID
	o.UserID = caller.ID
	o.CreatedBy = actor
	o.LastModifiedBy = actor
	o.CreatedAt = now
	o.UpdatedAt = now
	o.WorkflowHistory = []models.WorkflowEntry{{
		Action:      models.ActionCreated,
		PerformedBy: actor,
		Timestamp:   now,
		Comments:    "Work order created",
		NewStatus:   o.Status,
	}}

	o, err = s.orders.Insert(ctx, o)
	if err != nil {
		return models.Order{}, apperr.Persistence("insert order", err)
	}

	s.log.Info("work order created",
		zap.String("work_order_id", o.WorkOrderID),
		zap.String("unique_id", o.UniqueID),
		zap.String("by", caller.ID.Hex()))
	return o, nil
}

// Update applies the non-nil fields of p. A status change in p goes through
// the transition guard; if it is illegal nothing is written. Exactly one
// history entry is appended per successful update.
//
// The write is conditional on the status that was read, so a concurrent
// status change makes this call fail with apperr.ErrConflict.
func (s *Service) Update(ctx context.Context, caller orderpolicy.Caller, ident string, p models.OrderPatch) (models.Order, error) {
	p = p.Normalize()
	if err := validate(p); err != nil {
		return models.Order{}, err
	}
	set, err := p.Fields()
	if err != nil {
		return models.Order{}, apperr.Invalid("dateOfSurvey", err.Error())
	}
	sanitizeSet(set)

	cur, err := s.Get(ctx, caller, ident)
	if err != nil {
		return models.Order{}, err
	}

	now := s.now()
	actor := caller.DisplayName()
	entry := models.WorkflowEntry{
		Action:      models.ActionUpdated,
		PerformedBy: actor,
		Timestamp:   now,
		Comments:    "Work order updated",
	}

	// Sending back the current status (as a full form does) is not a change.
	if p.Status != nil {
		next, _ := models.ParseOrderStatus(*p.Status)
		if next != cur.Status {
			if err := checkTransition(cur.Status, next); err != nil {
				return models.Order{}, err
			}
			set["status"] = next
			entry.Action = models.ActionStatusChanged
			entry.PreviousStatus = cur.Status
			entry.NewStatus = next
			entry.Comments = statusComment(cur.Status, next, "")
		}
	}
	if p.Comments != nil && trimmed(*p.Comments) != "" {
		entry.Comments = sanitize(*p.Comments)
	}

	if len(set) == 0 {
		return models.Order{}, apperr.Invalid("body", "No fields to update.")
	}
	set["last_modified_by"] = actor

	if err := s.write(ctx, caller, cur, set, entry, now); err != nil {
		return models.Order{}, err
	}
	return s.reload(ctx, cur)
}

// UpdateStatus moves an order to status, recording comments (or a default
// "Status changed from X to Y" when comments is blank).
func (s *Service) UpdateStatus(ctx context.Context, caller orderpolicy.Caller, ident, status, comments string) (models.Order, error) {
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return models.Order{}, apperr.Invalid("status", "Status is invalid.")
	}
	cur, err := s.Get(ctx, caller, ident)
	if err != nil {
		return models.Order{}, err
	}
	if err := s.changeStatus(ctx, caller, cur, next, comments); err != nil {
		return models.Order{}, err
	}
	return s.reload(ctx, cur)
}

// BulkUpdateStatus applies UpdateStatus to each id independently. Ids that
// are invisible, missing, illegal for the transition or lose a race are
// skipped and counted; they never fail the batch. If ctx ends first the
// loop stops, the result is marked Incomplete and ctx's error comes back
// with it.
func (s *Service) BulkUpdateStatus(ctx context.Context, caller orderpolicy.Caller, ids []string, status, comments string) (BulkResult, error) {
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return BulkResult{}, apperr.Invalid("status", "Status is invalid.")
	}
	if len(ids) == 0 {
		return BulkResult{}, apperr.Invalid("ids", "At least one id is required.")
	}

	res := BulkResult{Requested: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			res.Incomplete = true
			break
		}

		cur, err := s.Get(ctx, caller, trimmed(id))
		if err == nil {
			err = s.changeStatus(ctx, caller, cur, next, comments)
		}
		if err != nil {
			if ctx.Err() != nil {
				res.Incomplete = true
				break
			}
			res.Skipped++
			res.Failures = append(res.Failures, BulkFailure{ID: id, Reason: skipReason(err)})
			s.log.Debug("bulk status change skipped",
				zap.String("id", id),
				zap.String("status", string(next)),
				zap.Error(err))
			continue
		}
		res.Updated++
	}

	fields := []zap.Field{
		zap.String("status", string(next)),
		zap.Int("requested", res.Requested),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	}
	if res.Incomplete {
		s.log.Warn("bulk status change stopped early", append(fields, zap.Error(ctx.Err()))...)
		return res, ctx.Err()
	}
	s.log.Info("bulk status change", fields...)
	return res, nil
}

// AddImages appends urls to the order's image list with one history entry.
func (s *Service) AddImages(ctx context.Context, caller orderpolicy.Caller, ident string, urls []string) (models.Order, error) {
	if err := validate(imageList{URLs: urls}); err != nil {
		return models.Order{}, err
	}
	cur, err := s.Get(ctx, caller, ident)
	if err != nil {
		return models.Order{}, err
	}

	now := s.now()
	actor := caller.DisplayName()
	entry := models.WorkflowEntry{
		Action:      models.ActionImagesAdded,
		PerformedBy: actor,
		Timestamp:   now,
		Comments:    fmt.Sprintf("Added %d image(s)", len(urls)),
	}
	ok, err := s.orders.AppendImages(ctx,
		s.policy.Within(caller, bson.M{"_id": cur.ID}),
		urls, entry, bson.M{"last_modified_by": actor}, now)
	if err != nil {
		return models.Order{}, apperr.Persistence("append images", err)
	}
	if !ok {
		return models.Order{}, apperr.ErrNotFound
	}
	return s.reload(ctx, cur)
}

// Delete removes the order entirely. No history is kept.
func (s *Service) Delete(ctx context.Context, caller orderpolicy.Caller, ident string) error {
	cur, err := s.Get(ctx, caller, ident)
	if err != nil {
		return err
	}
	ok, err := s.orders.Delete(ctx, s.policy.Within(caller, bson.M{"_id": cur.ID}))
	if err != nil {
		return apperr.Persistence("delete order", err)
	}
	if !ok {
		return apperr.ErrNotFound
	}
	s.log.Info("work order deleted",
		zap.String("work_order_id", cur.WorkOrderID),
		zap.String("by", caller.ID.Hex()))
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Service) changeStatus(ctx context.Context, caller orderpolicy.Caller, cur models.Order, next models.OrderStatus, comments string) error {
	if err := checkTransition(cur.Status, next); err != nil {
		return err
	}
	now := s.now()
	actor := caller.DisplayName()
	entry := models.WorkflowEntry{
		Action:         models.ActionStatusChanged,
		PerformedBy:    actor,
		Timestamp:      now,
		Comments:       statusComment(cur.Status, next, comments),
		PreviousStatus: cur.Status,
		NewStatus:      next,
	}
	set := bson.M{"status": next, "last_modified_by": actor}
	return s.write(ctx, caller, cur, set, entry, now)
}

// write updates cur only if it is still visible and still has the status
// that was read.
func (s *Service) write(ctx context.Context, caller orderpolicy.Caller, cur models.Order, set bson.M, entry models.WorkflowEntry, at time.Time) error {
	filter := s.policy.Within(caller, bson.M{"_id": cur.ID, "status": cur.Status})
	ok, err := s.orders.Update(ctx, filter, set, entry, at)
	if err != nil {
		return apperr.Persistence("update order", err)
	}
	if !ok {
		return apperr.ErrConflict
	}
	return nil
}

// reload reads cur back by _id. The write already passed the scope check;
// the caller may no longer match it (e.g. a technician reassigning).
func (s *Service) reload(ctx context.Context, cur models.Order) (models.Order, error) {
	o, err := s.orders.FindOne(ctx, bson.M{"_id": cur.ID})
	if err != nil {
		return models.Order{}, apperr.Persistence("reload order", err)
	}
	return o, nil
}

func statusComment(from, to models.OrderStatus, comments string) string {
	if c := trimmed(comments); c != "" {
		return sanitize(c)
	}
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}
