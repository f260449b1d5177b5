package domain

import "time"

// Identity is a credential-bearing record from one of the five role stores.
// Role-specific fields are only meaningful for the role that owns them.
type Identity struct {
	ID           string
	Role         Role
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	CountryCode  string
	Country      string
	City         string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// ADMIN
	IsSuperAdmin bool

	// EMPLOYEE
	EmployeeCode   string
	CommissionRate float64

	// TRADER
	CompanyName string
	TraderCode  string
	IsVerified  bool
	ClientID    string // linked CLIENT id, empty when unlinked

	// CLIENT
	PreferredCategories []string
	IsEmailVerified     bool
}

// PassesGate reports whether the identity may open a session once its
// password has matched.
func (i *Identity) PassesGate() bool {
	if !i.IsActive {
		return false
	}
	if i.Role == RoleTrader && !i.IsVerified {
		return false
	}
	return true
}

// IsLinked reports whether a trader already references a client.
func (i *Identity) IsLinked() bool {
	return i.Role == RoleTrader && i.ClientID != ""
}

// ValidProfile is a candidate that survived password and gate checks during
// one resolution. It is never persisted.
type ValidProfile struct {
	Identity        *Identity
	Role            Role
	PasswordMatched bool
}

// Profile is the public projection of an Identity returned to callers.
type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	UserType    Role       `json:"userType"`
	IsActive    bool       `json:"isActive"`
	Phone       string     `json:"phone,omitempty"`
	CountryCode string     `json:"countryCode,omitempty"`
	Country     string     `json:"country,omitempty"`
	City        string     `json:"city,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	IsSuperAdmin        *bool    `json:"isSuperAdmin,omitempty"`
	EmployeeCode        string   `json:"employeeCode,omitempty"`
	CommissionRate      *float64 `json:"commissionRate,omitempty"`
	CompanyName         string   `json:"companyName,omitempty"`
	TraderCode          string   `json:"traderCode,omitempty"`
	IsVerified          *bool    `json:"isVerified,omitempty"`
	ClientID            string   `json:"clientId,omitempty"`
	PreferredCategories []string `json:"preferredCategories,omitempty"`
	IsEmailVerified     *bool    `json:"isEmailVerified,omitempty"`
}

// Project builds the public view of i, exposing only the fields of its role.
func (i *Identity) Project() Profile {
	p := Profile{
		ID:          i.ID,
		Email:       i.Email,
		Name:        i.Name,
		UserType:    i.Role,
		IsActive:    i.IsActive,
		Phone:       i.Phone,
		CountryCode: i.CountryCode,
		Country:     i.Country,
		City:        i.City,
		LastLoginAt: i.LastLoginAt,
	}

	switch i.Role {
	case RoleAdmin:
		p.IsSuperAdmin = boolPtr(i.IsSuperAdmin)
	case RoleEmployee:
		p.EmployeeCode = i.EmployeeCode
		rate := i.CommissionRate
		p.CommissionRate = &rate
	case RoleTrader:
		p.CompanyName = i.CompanyName
		p.TraderCode = i.TraderCode
		p.IsVerified = boolPtr(i.IsVerified)
		p.ClientID = i.ClientID
	case RoleClient:
		p.PreferredCategories = i.PreferredCategories
		p.IsEmailVerified = boolPtr(i.IsEmailVerified)
	}
	return p
}

func boolPtr(b bool) *bool { return &b }
