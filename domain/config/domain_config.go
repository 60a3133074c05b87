package config

// DomainConfig holds configurable business rules and constraints
type DomainConfig struct {
	// Branch constraints
	MaxBranchesPerOwner int
	MaxBranchNameLength int
	DefaultBranchName   string

	// Message log constraints
	MaxMessagesPerBranch    int
	MaxMessageContentLength int

	// Validation settings
	AllowEmptyMessageContent bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxBranchesPerOwner: 1000,
		MaxBranchNameLength: 200,
		DefaultBranchName:   "New Branch",

		MaxMessagesPerBranch:    2000,
		MaxMessageContentLength: 100000,

		AllowEmptyMessageContent: false,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More restrictive limits for production
	config.MaxBranchesPerOwner = 500
	config.MaxMessageContentLength = 50000

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxBranchesPerOwner = 100000
	config.AllowEmptyMessageContent = true

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}
