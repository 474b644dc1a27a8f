package selection

// RegionCodes are the provider's public region codes.
var RegionCodes = []string{
	"europe-central-1",
	"asia-south-1",
	"australia-east-1",
	"me-west-1",
	"asia-northeast-1",
	"asia-northeast-2",
	"us-east-1",
	"us-east-2",
	"us-east-3",
	"us-west-2",
	"us-west-1",
	"us-south-1",
	"us-south-2",
	"us-south-3",
	"us-west-3",
	"us-midwest-1",
	"test-east-1",
	"test-west-1",
}

// ValidateRegion returns an *InvalidRegionError for unknown codes.
func ValidateRegion(code string) error {
	for _, known := range RegionCodes {
		if code == known {
			return nil
		}
	}
	return &InvalidRegionError{Region: code}
}

// ValidateRegions checks every code, returning the first failure.
func ValidateRegions(codes []string) error {
	for _, code := range codes {
		if err := ValidateRegion(code); err != nil {
			return err
		}
	}
	return nil
}
