package domain

type ServiceCode string

const (
	ServiceOilChange       ServiceCode = "oil_change"
	ServiceChainAdjustment ServiceCode = "chain_adjustment"
	ServiceEngineRepair    ServiceCode = "engine_repair"
	ServiceRoadAssistance  ServiceCode = "road_assistance"
)

type Service struct {
	Code  ServiceCode
	Label string
}

// Services is the menu in display order.
var Services = []Service{
	{Code: ServiceOilChange, Label: "Oil change"},
	{Code: ServiceChainAdjustment, Label: "Chain adjustment"},
	{Code: ServiceEngineRepair, Label: "Engine repair"},
	{Code: ServiceRoadAssistance, Label: "Road assistance"},
}

// ServiceByLabel matches the label exactly, no trimming or case folding.
func ServiceByLabel(label string) (Service, bool) {
	for _, s := range Services {
		if s.Label == label {
			return s, true
		}
	}
	return Service{}, false
}

func (c ServiceCode) Valid() bool {
	_, ok := c.lookup()
	return ok
}

// Label falls back to the raw code for unknown values.
func (c ServiceCode) Label() string {
	if s, ok := c.lookup(); ok {
		return s.Label
	}
	return string(c)
}

func (c ServiceCode) lookup() (Service, bool) {
	for _, s := range Services {
		if s.Code == c {
			return s, true
		}
	}
	return Service{}, false
}
