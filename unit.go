package pricetrack

import (
	"fmt"
	"math/bits"
	"strings"
)

type QuantityType int

const (
	QuantityItem QuantityType = iota + 1
	QuantityWeight
	QuantityVolume
)

func (qt QuantityType) String() string {
	switch qt {
	case QuantityItem:
		return "item"
	case QuantityWeight:
		return "weight"
	case QuantityVolume:
		return "volume"
	}
	return fmt.Sprintf("QuantityType(%d)", int(qt))
}

// BaseUnit is the canonical storage unit for the quantity type.
func (qt QuantityType) BaseUnit() Unit {
	switch qt {
	case QuantityWeight:
		return UnitG
	case QuantityVolume:
		return UnitML
	}
	return UnitEach
}

func ParseQuantityType(s string) (QuantityType, error) {
	for _, qt := range []QuantityType{QuantityItem, QuantityWeight, QuantityVolume} {
		if strings.EqualFold(s, qt.String()) {
			return qt, nil
		}
	}
	return 0, fmt.Errorf("unknown quantity type %q", s)
}

// UnitFamily is a bit flag; a set of families is the OR of its members.
type UnitFamily uint8

const (
	FamilyItem UnitFamily = 1 << iota
	FamilyMetric
	FamilyImperial
	FamilyUSCustomary
)

func (f UnitFamily) Has(other UnitFamily) bool {
	return f&other == other
}

func (f UnitFamily) String() string {
	var names []string
	for _, fam := range []struct {
		flag UnitFamily
		name string
	}{
		{FamilyItem, "item"},
		{FamilyMetric, "metric"},
		{FamilyImperial, "imperial"},
		{FamilyUSCustomary, "us_customary"},
	} {
		if f.Has(fam.flag) {
			names = append(names, fam.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ValidateFamilies checks the metric/imperial/US selection of a data set.
// Imperial and US customary unit names collide ("pint"), so they never mix.
func ValidateFamilies(enabled UnitFamily) error {
	measured := enabled &^ FamilyItem
	if measured == 0 {
		return fmt.Errorf("%w: no unit family enabled", ErrInvariant)
	}
	if measured.Has(FamilyImperial | FamilyUSCustomary) {
		return fmt.Errorf("%w: imperial and US customary units are both enabled", ErrInvariant)
	}
	return nil
}

// Unit is the stable id of a catalog entry. Ids are persisted; never renumber.
type Unit int

const (
	UnitEach  Unit = 1
	UnitDozen Unit = 2

	UnitG        Unit = 10
	UnitKG       Unit = 11
	UnitHundredG Unit = 12
	UnitOZ       Unit = 20
	UnitLB       Unit = 21

	UnitML        Unit = 30
	UnitL         Unit = 31
	UnitHundredML Unit = 32
	UnitCL        Unit = 33

	UnitImpFlOz   Unit = 40
	UnitImpPint   Unit = 41
	UnitImpQuart  Unit = 42
	UnitImpGallon Unit = 43

	UnitUSFlOz   Unit = 50
	UnitUSCup    Unit = 51
	UnitUSPint   Unit = 52
	UnitUSQuart  Unit = 53
	UnitUSGallon Unit = 54
)

type unitInfo struct {
	unit        Unit
	symbol      string
	qt          QuantityType
	families    UnitFamily
	factor      float64 // e.g., 1 kg = 1000 g
	decimals    int
	displayOnly bool
}

// unitTable is in display order: metric before imperial before US customary.
var unitTable = []unitInfo{
	{UnitEach, "each", QuantityItem, FamilyItem, 1, 0, false},
	{UnitDozen, "dozen", QuantityItem, FamilyItem, 12, 2, false},

	{UnitG, "g", QuantityWeight, FamilyMetric, 1, 0, false},
	{UnitHundredG, "100 g", QuantityWeight, FamilyMetric, 100, 0, true},
	{UnitKG, "kg", QuantityWeight, FamilyMetric, 1000, 3, false},
	{UnitOZ, "oz", QuantityWeight, FamilyImperial | FamilyUSCustomary, 28.349523125, 2, false},
	{UnitLB, "lb", QuantityWeight, FamilyImperial | FamilyUSCustomary, 453.59237, 3, false},

	{UnitML, "ml", QuantityVolume, FamilyMetric, 1, 0, false},
	{UnitCL, "cl", QuantityVolume, FamilyMetric, 10, 1, false},
	{UnitHundredML, "100 ml", QuantityVolume, FamilyMetric, 100, 0, true},
	{UnitL, "l", QuantityVolume, FamilyMetric, 1000, 3, false},

	{UnitImpFlOz, "fl oz", QuantityVolume, FamilyImperial, 28.4130625, 2, false},
	{UnitImpPint, "pint", QuantityVolume, FamilyImperial, 568.26125, 2, false},
	{UnitImpQuart, "quart", QuantityVolume, FamilyImperial, 1136.5225, 2, false},
	{UnitImpGallon, "gallon", QuantityVolume, FamilyImperial, 4546.09, 3, false},

	{UnitUSFlOz, "fl oz", QuantityVolume, FamilyUSCustomary, 29.5735295625, 2, false},
	{UnitUSCup, "cup", QuantityVolume, FamilyUSCustomary, 236.5882365, 2, false},
	{UnitUSPint, "pint", QuantityVolume, FamilyUSCustomary, 473.176473, 2, false},
	{UnitUSQuart, "quart", QuantityVolume, FamilyUSCustomary, 946.352946, 2, false},
	{UnitUSGallon, "gallon", QuantityVolume, FamilyUSCustomary, 3785.411784, 3, false},
}

var unitIndex = func() map[Unit]int {
	idx := make(map[Unit]int, len(unitTable))
	for i, info := range unitTable {
		idx[info.unit] = i
	}
	return idx
}()

func (u Unit) info() unitInfo {
	i, ok := unitIndex[u]
	if !ok {
		panic(fmt.Sprintf("pricetrack: unknown unit id %d", int(u)))
	}
	return unitTable[i]
}

func (u Unit) Valid() bool {
	_, ok := unitIndex[u]
	return ok
}

func (u Unit) String() string {
	if !u.Valid() {
		return fmt.Sprintf("Unit(%d)", int(u))
	}
	return u.info().symbol
}

func (u Unit) QuantityType() QuantityType { return u.info().qt }
func (u Unit) Families() UnitFamily       { return u.info().families }
func (u Unit) Factor() float64            { return u.info().factor }
func (u Unit) Decimals() int              { return u.info().decimals }
func (u Unit) DisplayOnly() bool          { return u.info().displayOnly }

func AllUnits() []Unit {
	units := make([]Unit, len(unitTable))
	for i, info := range unitTable {
		units[i] = info.unit
	}
	return units
}

// UnitBySymbol resolves a symbol within the enabled families. Symbols such as
// "pint" exist in more than one family, so the family set decides.
func UnitBySymbol(symbol string, enabled UnitFamily) (Unit, bool) {
	enabled |= FamilyItem
	for _, info := range unitTable {
		if strings.EqualFold(info.symbol, symbol) && info.families&enabled != 0 {
			return info.unit, true
		}
	}
	return 0, false
}

// UnitsFor lists the units of a quantity type offered by a data set with the
// given families enabled, in catalog order.
func UnitsFor(qt QuantityType, enabled UnitFamily, includeDisplayOnly bool) ([]Unit, error) {
	if err := ValidateFamilies(enabled); err != nil {
		return nil, err
	}
	enabled |= FamilyItem
	var units []Unit
	for _, info := range unitTable {
		if info.qt != qt || info.families&enabled == 0 {
			continue
		}
		if info.displayOnly && !includeDisplayOnly {
			continue
		}
		units = append(units, info.unit)
	}
	return units, nil
}

// UnitFamilyIn resolves which single family u belongs to in the context of a
// data set. A unit shared by several families must resolve to exactly one.
func UnitFamilyIn(u Unit, enabled UnitFamily) (UnitFamily, error) {
	if err := ValidateFamilies(enabled); err != nil {
		return 0, err
	}
	common := u.Families() & (enabled | FamilyItem)
	if bits.OnesCount8(uint8(common)) != 1 {
		return 0, fmt.Errorf("%w: unit %s resolves to families %s with %s enabled", ErrInvariant, u, common, enabled)
	}
	return common, nil
}

// RelatedUnits returns the units of u's quantity type within the family u
// resolves to for the data set.
func RelatedUnits(u Unit, enabled UnitFamily, includeDisplayOnly bool) ([]Unit, error) {
	family, err := UnitFamilyIn(u, enabled)
	if err != nil {
		return nil, err
	}
	var units []Unit
	for _, info := range unitTable {
		if info.qt != u.QuantityType() || !info.families.Has(family) {
			continue
		}
		if info.displayOnly && !includeDisplayOnly {
			continue
		}
		units = append(units, info.unit)
	}
	return units, nil
}
