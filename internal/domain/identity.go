package domain

// Provenance names the backing store that answered an identity lookup.
type Provenance string

const (
	ProvenanceBlockchain Provenance = "blockchain"
	ProvenanceDatabase   Provenance = "database"
	// ProvenanceFallback marks a record synthesised locally from chain data
	// that has not yet been read back from either store.
	ProvenanceFallback Provenance = "fallback"
)

// Identity is the normalised shopkeeper / delivery agent / consumer view
// assembled at read time. It is never persisted in this form.
type Identity struct {
	Role                   Role       `json:"role"`
	Address                string     `json:"address,omitempty"`
	Aadhaar                string     `json:"aadhaar,omitempty"`
	Name                   string     `json:"name"`
	Mobile                 string     `json:"mobile,omitempty"`
	Area                   string     `json:"area,omitempty"`
	Category               string     `json:"category,omitempty"`
	AssignedShopkeeper     string     `json:"assignedShopkeeper,omitempty"`
	RegistrationTime       int64      `json:"registrationTime"`
	TotalConsumersAssigned uint64     `json:"totalConsumersAssigned,omitempty"`
	TotalTokensIssued      uint64     `json:"totalTokensIssued,omitempty"`
	TotalDeliveries        uint64     `json:"totalDeliveries,omitempty"`
	TotalTokensReceived    uint64     `json:"totalTokensReceived,omitempty"`
	TotalTokensClaimed     uint64     `json:"totalTokensClaimed,omitempty"`
	IsActive               bool       `json:"isActive"`
	Provenance             Provenance `json:"source"`
}

// ShopkeeperRecord mirrors getShopkeeperInfo(address).
type ShopkeeperRecord struct {
	ShopkeeperAddress      string
	Name                   string
	Area                   string
	Mobile                 string
	RegistrationTime       int64
	TotalConsumersAssigned uint64
	TotalTokensIssued      uint64
	TotalDeliveries        uint64
	IsActive               bool
}

// DeliveryAgentRecord mirrors getDeliveryAgentInfo(address).
type DeliveryAgentRecord struct {
	AgentAddress       string
	Name               string
	Mobile             string
	AssignedShopkeeper string
	TotalDeliveries    uint64
	RegistrationTime   int64
	IsActive           bool
}

// ConsumerRecord mirrors getConsumerByAadhaar(uint256).
type ConsumerRecord struct {
	Aadhaar             string
	Name                string
	Mobile              string
	Category            string
	AssignedShopkeeper  string
	TotalTokensReceived uint64
	TotalTokensClaimed  uint64
	RegistrationTime    int64
	IsActive            bool
}
