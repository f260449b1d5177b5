package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// roleCollections maps each role to the collection that stores it.
var roleCollections = map[domain.Role]string{
	domain.RoleAdmin:     "admins",
	domain.RoleModerator: "moderators",
	domain.RoleEmployee:  "employees",
	domain.RoleTrader:    "traders",
	domain.RoleClient:    "clients",
}

// IdentityRepository implements ports.IdentityRepository over one
// collection per role.
type IdentityRepository struct {
	cols map[domain.Role]*mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	cols := make(map[domain.Role]*mongo.Collection, len(roleCollections))
	for role, name := range roleCollections {
		cols[role] = db.Collection(name)
	}
	return &IdentityRepository{cols: cols}
}

type identityDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Name         string             `bson:"name"`
	Phone        string             `bson:"phone,omitempty"`
	CountryCode  string             `bson:"country_code,omitempty"`
	Country      string             `bson:"country,omitempty"`
	City         string             `bson:"city,omitempty"`
	IsActive     bool               `bson:"is_active"`
	LastLoginAt  *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`

	IsSuperAdmin        bool     `bson:"is_super_admin,omitempty"`
	EmployeeCode        string   `bson:"employee_code,omitempty"`
	CommissionRate      float64  `bson:"commission_rate,omitempty"`
	CompanyName         string   `bson:"company_name,omitempty"`
	TraderCode          string   `bson:"trader_code,omitempty"`
	IsVerified          bool     `bson:"is_verified,omitempty"`
	ClientID            string   `bson:"client_id,omitempty"`
	PreferredCategories []string `bson:"preferred_categories,omitempty"`
	IsEmailVerified     bool     `bson:"is_email_verified,omitempty"`
}

func (d *identityDoc) toDomain(role domain.Role) *domain.Identity {
	return &domain.Identity{
		ID:                  d.ID.Hex(),
		Role:                role,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		Name:                d.Name,
		Phone:               d.Phone,
		CountryCode:         d.CountryCode,
		Country:             d.Country,
		City:                d.City,
		IsActive:            d.IsActive,
		LastLoginAt:         d.LastLoginAt,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
		IsSuperAdmin:        d.IsSuperAdmin,
		EmployeeCode:        d.EmployeeCode,
		CommissionRate:      d.CommissionRate,
		CompanyName:         d.CompanyName,
		TraderCode:          d.TraderCode,
		IsVerified:          d.IsVerified,
		ClientID:            d.ClientID,
		PreferredCategories: d.PreferredCategories,
		IsEmailVerified:     d.IsEmailVerified,
	}
}

func (r *IdentityRepository) col(role domain.Role) (*mongo.Collection, error) {
	c, ok := r.cols[role]
	if !ok {
		return nil, fmt.Errorf("no collection for role %q", role)
	}
	return c, nil
}

func (r *IdentityRepository) findOne(ctx context.Context, role domain.Role, filter bson.M, opts ...*options.FindOneOptions) (*domain.Identity, error) {
	col, err := r.col(role)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDoc
	if err := col.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find %s: %w", roleCollections[role], err)
	}
	return doc.toDomain(role), nil
}

// FindByEmail retrieves the record of role registered under email, ignoring
// case.
func (r *IdentityRepository) FindByEmail(ctx context.Context, role domain.Role, email string) (*domain.Identity, error) {
	return r.findOne(ctx, role, bson.M{"email": email}, byEmailOptions())
}

func byEmailOptions() *options.FindOneOptions {
	return options.FindOne().SetCollation(emailCollation)
}

// FindByID retrieves the record of role with the given hex id. Malformed ids
// cannot exist and are reported as not found.
func (r *IdentityRepository) FindByID(ctx context.Context, role domain.Role, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	return r.findOne(ctx, role, bson.M{"_id": oid})
}

// FindTraderByClientID retrieves the trader linked to clientID.
func (r *IdentityRepository) FindTraderByClientID(ctx context.Context, clientID string) (*domain.Identity, error) {
	return r.findOne(ctx, domain.RoleTrader, bson.M{"client_id": clientID})
}

// UpdateLastLogin is a single-document last-writer-wins update.
func (r *IdentityRepository) UpdateLastLogin(ctx context.Context, role domain.Role, id string, at time.Time) error {
	col, err := r.col(role)
	if err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrIdentityNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// CreateClient inserts a new client document and returns it with its id.
func (r *IdentityRepository) CreateClient(ctx context.Context, client *domain.Identity) (*domain.Identity, error) {
	col, err := r.col(domain.RoleClient)
	if err != nil {
		return nil, err
	}

	doc := identityDoc{
		Email:               client.Email,
		PasswordHash:        client.PasswordHash,
		Name:                client.Name,
		Phone:               client.Phone,
		CountryCode:         client.CountryCode,
		Country:             client.Country,
		City:                client.City,
		IsActive:            client.IsActive,
		CreatedAt:           client.CreatedAt.UTC(),
		UpdatedAt:           client.UpdatedAt.UTC(),
		PreferredCategories: client.PreferredCategories,
		IsEmailVerified:     client.IsEmailVerified,
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert client: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert client: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(domain.RoleClient), nil
}

// LinkTraderToClient sets client_id on an unlinked trader. The filter makes
// the write conditional, and the unique index on client_id rejects a second
// trader pointing at the same client.
func (r *IdentityRepository) LinkTraderToClient(ctx context.Context, traderID, clientID string) error {
	col, err := r.col(domain.RoleTrader)
	if err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(traderID)
	if err != nil {
		return domain.ErrIdentityNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "client_id": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"client_id": clientID, "updated_at": time.Now().UTC()}}
	res, err := col.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyLinked
		}
		return fmt.Errorf("link trader: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("link trader: %w", err)
	}
	if n == 0 {
		return domain.ErrIdentityNotFound
	}
	return domain.ErrAlreadyLinked
}
