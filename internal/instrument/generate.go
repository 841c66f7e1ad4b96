package instrument

import (
	"fmt"
	"math/rand"

	"pkt.systems/searchbench/api"
)

var countryCodes = []string{"US", "GB", "DE", "FR", "JP", "CA", "AU", "CH", "NL", "SE"}

var namePrefixes = []string{
	"Global", "International", "Advanced", "Dynamic", "Strategic", "Premier",
	"Elite", "Innovative", "Sustainable", "Digital", "Smart", "Future",
	"Alpha", "Beta", "Gamma", "Delta", "Omega", "Prime", "Core", "Edge",
}

var nameCompanies = []string{
	"TechCorp", "DataSystems", "CloudVentures", "BioMedical", "EnergyPlus",
	"FinanceGroup", "ManufacturingCo", "RetailChain", "TransportHub", "MediaWorks",
	"HealthServices", "ConsumerGoods", "IndustrialSolutions", "AgriTech", "RealEstate",
	"Telecommunications", "Automotive", "Aerospace", "Pharmaceuticals", "Utilities",
}

var nameSuffixes = []string{
	"Holdings", "Industries", "Solutions", "Technologies", "Systems", "Services",
	"Group", "Corporation", "Enterprises", "Partners", "Ventures", "International",
	"Global", "Limited", "Inc", "LLC", "AG", "SA", "PLC", "GmbH",
}

var businessAreas = []string{
	"Financial Services", "Investment Banking", "Asset Management", "Private Equity",
	"Venture Capital", "Real Estate Investment", "Infrastructure Development",
	"Technology Innovation", "Digital Transformation", "Artificial Intelligence",
	"Machine Learning", "Data Analytics", "Cloud Computing", "Cybersecurity",
	"Biotechnology Research", "Pharmaceutical Development", "Medical Devices",
	"Healthcare Solutions", "Renewable Energy", "Solar Power Generation",
	"Wind Energy Systems", "Energy Storage Solutions", "Smart Grid Technology",
	"Transportation Services", "Logistics Management", "Supply Chain Solutions",
}

var geographicRegions = []string{
	"North America", "Europe", "Asia-Pacific", "Latin America", "Middle East",
	"Scandinavia", "Eastern Europe", "Southeast Asia", "Sub-Saharan Africa",
	"Western Europe", "Central Asia", "Caribbean", "Pacific Islands",
	"Mediterranean", "Baltic States", "Nordic Region", "Emerging Markets",
}

var fundTypes = []string{
	"Equity Fund", "Bond Fund", "Hybrid Fund", "Index Fund", "ETF",
	"Mutual Fund", "Hedge Fund", "Private Equity Fund", "Real Estate Fund",
	"Infrastructure Fund", "Commodity Fund", "Currency Fund", "Derivatives Fund",
	"Alternative Investment Fund", "Sustainable Investment Fund", "Impact Fund",
}

var investmentStrategies = []string{
	"Growth Strategy", "Value Strategy", "Momentum Strategy", "Dividend Strategy",
	"Quality Strategy", "Low Volatility Strategy", "High Yield Strategy",
	"Multi-Factor Strategy", "ESG Strategy", "Quantitative Strategy",
	"Fundamental Analysis Strategy", "Technical Analysis Strategy",
	"Market Neutral Strategy", "Long Short Strategy", "Arbitrage Strategy",
}

var longNameFillers = []string{
	"with Professional Management", "and Institutional Grade Infrastructure",
	"featuring Advanced Analytics", "and Regulatory Compliance",
	"including ESG Integration", "and Transparent Reporting",
	"with Daily Liquidity", "and Competitive Fee Structure",
}

// priceBands mirrors the tiers the population is drawn from, so prices
// spread across the full valid range instead of clustering.
var priceBands = [][2]float64{
	{1.0, 10.0},
	{10.0, 50.0},
	{50.0, 200.0},
	{200.0, 1000.0},
	{1000.0, 5000.0},
}

const isinAlphanum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator produces schema-valid instruments from an explicitly seeded
// source, so a given seed always yields the same population.
type Generator struct {
	rng  *rand.Rand
	seen map[string]struct{}
}

// NewGenerator returns a generator with its own deterministic source.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:  rand.New(rand.NewSource(seed)),
		seen: make(map[string]struct{}),
	}
}

// Generate produces count instruments with globally unique ISINs.
func (g *Generator) Generate(count int) ([]api.Instrument, error) {
	if count <= 0 {
		return nil, fmt.Errorf("generate: count must be > 0")
	}
	out := make([]api.Instrument, 0, count)
	for len(out) < count {
		in := api.Instrument{
			ISIN:     g.isin(),
			Name:     g.name(),
			LongName: g.longName(),
			Price:    g.Price(),
		}
		if _, dup := g.seen[in.ISIN]; dup {
			continue
		}
		if err := Validate(in); err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		g.seen[in.ISIN] = struct{}{}
		out = append(out, in)
	}
	return out, nil
}

// Price draws from a random band, rounded to cents.
func (g *Generator) Price() float64 {
	band := priceBands[g.rng.Intn(len(priceBands))]
	p := band[0] + g.rng.Float64()*(band[1]-band[0])
	return float64(int(p*100+0.5)) / 100
}

func (g *Generator) isin() string {
	b := make([]byte, 0, ISINLength)
	b = append(b, countryCodes[g.rng.Intn(len(countryCodes))]...)
	for i := 0; i < 9; i++ {
		b = append(b, isinAlphanum[g.rng.Intn(len(isinAlphanum))])
	}
	b = append(b, byte('0'+g.rng.Intn(10)))
	return string(b)
}

func (g *Generator) name() string {
	prefix := namePrefixes[g.rng.Intn(len(namePrefixes))]
	company := nameCompanies[g.rng.Intn(len(nameCompanies))]
	suffix := nameSuffixes[g.rng.Intn(len(nameSuffixes))]
	switch g.rng.Intn(4) {
	case 0:
		return prefix + " " + company + " " + suffix
	case 1:
		return company + " " + suffix
	case 2:
		return prefix + " " + company
	default:
		return company + " " + prefix + " " + suffix
	}
}

// longName builds a 100-200 character descriptive name. The patterns,
// padding, and trim behavior match the imported dataset's conventions so
// text-search cost stays realistic.
func (g *Generator) longName() string {
	area := businessAreas[g.rng.Intn(len(businessAreas))]
	area2 := businessAreas[g.rng.Intn(len(businessAreas))]
	region := geographicRegions[g.rng.Intn(len(geographicRegions))]
	fund := fundTypes[g.rng.Intn(len(fundTypes))]
	strategy := investmentStrategies[g.rng.Intn(len(investmentStrategies))]

	var s string
	switch g.rng.Intn(7) {
	case 0:
		s = area + " " + region + " " + fund + " - " + strategy + " with Enhanced Risk Management and Diversified Portfolio Allocation"
	case 1:
		s = "International " + area + " and " + area2 + " " + fund + " focused on " + region + " Markets with Sustainable Investment Approach"
	case 2:
		s = region + " " + area + " " + fund + " implementing " + strategy + " and Advanced Portfolio Optimization Techniques"
	case 3:
		s = "Global " + area + " Investment Platform featuring " + fund + " with " + strategy + " and Multi-Asset Class Diversification"
	case 4:
		s = fund + " for " + region + " " + area + " Sector with Focus on " + strategy + " and Long-Term Value Creation"
	case 5:
		s = "Diversified " + area + " and " + area2 + " " + fund + " targeting " + region + " with " + strategy
	default:
		s = "Strategic " + area + " Investment " + fund + " for " + region + " Markets emphasizing " + strategy + " and Risk-Adjusted Returns"
	}
	for len(s) < LongNameMinLen {
		s += " " + longNameFillers[g.rng.Intn(len(longNameFillers))]
	}
	if len(s) > LongNameMaxLen {
		s = s[:LongNameMaxLen-3] + "..."
	}
	return s
}
