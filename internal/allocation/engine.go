// Package allocation apportions shared logistics costs and client revenue for
// a single arrival batch.
//
// Partners fund driver, store and freight costs; clients are charged driver,
// store and postal costs and pay a service fee per kilogram. Net profit is
// defined from the client side only:
//
//	partnerPerKg = (driver + store + freight) / partnerKg
//	clientPerKg  = (driver + store + postal) / clientKg
//	revenue      = Σ clientKg_i × fee_i
//	netProfit    = revenue − clientKg × clientPerKg
package allocation

// OwnerType tags an owner as a co-investing partner or a paying client.
type OwnerType string

const (
	// OwnerPartner marks a fixed co-investor.
	OwnerPartner OwnerType = "Partner"
	// OwnerClient marks a third party paying a service fee.
	OwnerClient OwnerType = "Client"
)

// Valid reports whether the type is one of the known owner types.
func (t OwnerType) Valid() bool {
	return t == OwnerPartner || t == OwnerClient
}

// CostInputs are the shared logistics costs of one arrival event.
type CostInputs struct {
	DriverCost  float64
	StoreCost   float64
	FreightCost float64
	PostalCost  float64
}

// OwnerArrival is one owner's share of an arrival event.
type OwnerArrival struct {
	OwnerName       string
	OwnerType       OwnerType
	ArrivedKg       float64
	ServiceFeePerKg float64
}

// Result is the computed financial record of a batch. Every numeric field is
// rounded to two decimals.
type Result struct {
	Costs    CostInputs
	Arrivals []OwnerArrival

	TotalPartnerKg     float64
	TotalClientKg      float64
	PartnerPerKgCost   float64
	ClientPerKgCost    float64
	TotalClientRevenue float64
	TotalClientCosts   float64
	NetProfit          float64
}

// Compute converts raw cost and weight inputs into a batch financial record.
// It never fails: zero weight on a side yields a zero per-kg cost for that
// side. Identity (batch and shipment IDs) is the caller's concern.
func Compute(costs CostInputs, arrivals []OwnerArrival) Result {
	in := CostInputs{
		DriverCost:  Round2(ToSafeNumber(costs.DriverCost)),
		StoreCost:   Round2(ToSafeNumber(costs.StoreCost)),
		FreightCost: Round2(ToSafeNumber(costs.FreightCost)),
		PostalCost:  Round2(ToSafeNumber(costs.PostalCost)),
	}

	lines := make([]OwnerArrival, len(arrivals))
	var partnerKg, clientKg, revenue float64
	for i, a := range arrivals {
		kg := Round2(ToSafeNumber(a.ArrivedKg))
		fee := Round2(ToSafeNumber(a.ServiceFeePerKg))
		lines[i] = OwnerArrival{
			OwnerName:       a.OwnerName,
			OwnerType:       a.OwnerType,
			ArrivedKg:       kg,
			ServiceFeePerKg: fee,
		}
		switch a.OwnerType {
		case OwnerPartner:
			partnerKg += kg
		case OwnerClient:
			clientKg += kg
			revenue += kg * fee
		}
	}

	res := Result{
		Costs:          in,
		Arrivals:       lines,
		TotalPartnerKg: Round2(partnerKg),
		TotalClientKg:  Round2(clientKg),
	}
	if res.TotalPartnerKg > 0 {
		res.PartnerPerKgCost = Round2((in.DriverCost + in.StoreCost + in.FreightCost) / res.TotalPartnerKg)
	}
	if res.TotalClientKg > 0 {
		res.ClientPerKgCost = Round2((in.DriverCost + in.StoreCost + in.PostalCost) / res.TotalClientKg)
	}
	res.TotalClientRevenue = Round2(revenue)
	res.TotalClientCosts = Round2(res.TotalClientKg * res.ClientPerKgCost)
	res.NetProfit = Round2(res.TotalClientRevenue - res.TotalClientCosts)
	return res
}

// Split returns each partner's share of a flat 50/50 profit split.
func Split(netProfit float64) float64 {
	return Round2(ToSafeNumber(netProfit) / 2)
}

// PartnerCost is the logistics cost carried by partners for a batch. It is
// informational and never part of net profit.
func PartnerCost(totalPartnerKg, partnerPerKgCost float64) float64 {
	return Round2(totalPartnerKg * partnerPerKgCost)
}
