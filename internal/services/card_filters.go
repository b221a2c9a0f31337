package services

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/ptcg-carddb/internal/models"
)

// Dialect selects the JSON functions used by raw predicates
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectOf maps a gorm connection to the predicate dialect
func DialectOf(db *gorm.DB) Dialect {
	if db.Dialector.Name() == "postgres" {
		return DialectPostgres
	}
	return DialectSQLite
}

const (
	defaultTake = 50
	maxTake     = 100
)

// CardQuery is the flat parameter bag accepted by GET /cards
type CardQuery struct {
	Skip      int    `form:"skip" binding:"omitempty,min=0"`
	Take      int    `form:"take" binding:"omitempty,min=0"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`

	WebCardID      string `form:"webCardId"`
	Language       string `form:"language"`
	Region         string `form:"region"`
	ExpansionCode  string `form:"expansionCode"`
	Name           string `form:"name"`
	Supertype      string `form:"supertype"`
	Types          string `form:"types"`
	Rarity         string `form:"rarity"`
	Subtypes       string `form:"subtypes"`
	EvolutionStage string `form:"evolutionStage"`
	RuleBox        string `form:"ruleBox"`
	VariantType    string `form:"variantType"`
	MinHP          *int   `form:"minHp"`
	MaxHP          *int   `form:"maxHp"`
	Artist         string `form:"artist"`
	RegulationMark string `form:"regulationMark"`

	// JSON predicates; any of these moves the query to the raw SQL path
	HasAbilities  *bool  `form:"hasAbilities"`
	HasAttacks    *bool  `form:"hasAttacks"`
	HasAttackText *bool  `form:"hasAttackText"`
	EvolvesTo     string `form:"evolvesTo"`
	AttackName    string `form:"attackName"`
}

// Predicate is one filter condition with both renderings
type Predicate interface {
	// Expression renders the predicate for the ORM path
	Expression(d Dialect) clause.Expression
	// SQL renders a parameterized fragment for the raw path
	SQL(d Dialect) (string, []any)
	// RawOnly reports that the ORM path cannot express the predicate
	RawOnly() bool
}

type compareOp string

const (
	opEq  compareOp = "="
	opGte compareOp = ">="
	opLte compareOp = "<="
)

// columnPredicate compares a cards column with a value
type columnPredicate struct {
	column string
	op     compareOp
	value  any
}

func (p columnPredicate) Expression(Dialect) clause.Expression {
	col := clause.Column{Table: "cards", Name: p.column}
	switch p.op {
	case opGte:
		return clause.Gte{Column: col, Value: p.value}
	case opLte:
		return clause.Lte{Column: col, Value: p.value}
	default:
		return clause.Eq{Column: col, Value: p.value}
	}
}

func (p columnPredicate) SQL(Dialect) (string, []any) {
	return "cards." + p.column + " " + string(p.op) + " ?", []any{p.value}
}

func (columnPredicate) RawOnly() bool { return false }

// sqlPredicate is a hand-written fragment per dialect. Fragments reference the
// cards table by name so they work in both paths.
type sqlPredicate struct {
	render  func(d Dialect) string
	vars    []any
	rawOnly bool
}

func (p sqlPredicate) Expression(d Dialect) clause.Expression {
	return clause.Expr{SQL: p.render(d), Vars: p.vars}
}

func (p sqlPredicate) SQL(d Dialect) (string, []any) {
	return p.render(d), p.vars
}

func (p sqlPredicate) RawOnly() bool { return p.rawOnly }

func fixed(sql string) func(Dialect) string {
	return func(Dialect) string { return sql }
}

func containsInsensitive(column, value string) Predicate {
	return sqlPredicate{
		render: fixed("LOWER(cards." + column + `) LIKE ? ESCAPE '\'`),
		vars:   []any{"%" + escapeLike(strings.ToLower(value)) + "%"},
	}
}

// jsonListHasAny matches rows whose JSON string list shares an element with values
func jsonListHasAny(column string, values []string) Predicate {
	return sqlPredicate{
		render: func(d Dialect) string {
			if d == DialectPostgres {
				return "EXISTS (SELECT 1 FROM jsonb_array_elements_text(cards." + column + ") AS elem(value) WHERE elem.value IN ?)"
			}
			return "EXISTS (SELECT 1 FROM json_each(cards." + column + ") AS elem WHERE elem.value IN ?)"
		},
		vars: []any{values},
	}
}

func expansionCodeIs(code string) Predicate {
	return sqlPredicate{
		render: fixed("cards.regional_expansion_id IN (SELECT id FROM regional_expansions WHERE code = ?)"),
		vars:   []any{strings.ToLower(strings.TrimSpace(code))},
	}
}

func regionIs(region models.Region) Predicate {
	return sqlPredicate{
		render: fixed("cards.regional_expansion_id IN (SELECT id FROM regional_expansions WHERE region = ?)"),
		vars:   []any{region},
	}
}

// nonEmptyArray is true only for a JSON array with at least one element. SQL
// NULL, JSON null, [] and non-arrays are all false, so negating it yields the
// exact complement.
func nonEmptyArray(column string) func(Dialect) string {
	return func(d Dialect) string {
		if d == DialectPostgres {
			return "COALESCE(CASE WHEN jsonb_typeof(cards." + column + ") = 'array' THEN jsonb_array_length(cards." + column + ") > 0 END, FALSE)"
		}
		return "COALESCE(CASE WHEN json_type(cards." + column + ") = 'array' THEN json_array_length(cards." + column + ") > 0 END, 0)"
	}
}

func hasJSONArray(column string, want bool) Predicate {
	inner := nonEmptyArray(column)
	return sqlPredicate{
		render: func(d Dialect) string {
			if want {
				return inner(d)
			}
			return "NOT (" + inner(d) + ")"
		},
		rawOnly: true,
	}
}

// attacksExist renders EXISTS over the attack objects, guarding against
// non-array values; cond is applied to each element named "attack"
func attacksExist(negate bool, pgCond, sqliteCond string, vars ...any) Predicate {
	return sqlPredicate{
		render: func(d Dialect) string {
			var sql string
			if d == DialectPostgres {
				sql = "EXISTS (SELECT 1 FROM jsonb_array_elements(CASE WHEN jsonb_typeof(cards.attacks) = 'array' THEN cards.attacks ELSE '[]'::jsonb END) AS attack WHERE " + pgCond + ")"
			} else {
				sql = "EXISTS (SELECT 1 FROM json_each(CASE WHEN json_type(cards.attacks) = 'array' THEN cards.attacks ELSE '[]' END) AS attack WHERE " + sqliteCond + ")"
			}
			if negate {
				return "NOT " + sql
			}
			return sql
		},
		vars:    vars,
		rawOnly: true,
	}
}

func hasAttackText(want bool) Predicate {
	return attacksExist(!want,
		"COALESCE(attack->>'text', '') <> ''",
		"COALESCE(json_extract(attack.value, '$.text'), '') <> ''",
	)
}

func attackNamed(name string) Predicate {
	return attacksExist(false,
		"attack->>'name' = ?",
		"json_extract(attack.value, '$.name') = ?",
		name,
	)
}

// evolvesToIncludes matches one name of the comma-joined evolves_to column exactly
func evolvesToIncludes(name string) Predicate {
	return sqlPredicate{
		render:  fixed(`(',' || COALESCE(cards.evolves_to, '') || ',') LIKE ? ESCAPE '\'`),
		vars:    []any{"%," + escapeLike(strings.TrimSpace(name)) + ",%"},
		rawOnly: true,
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

var sortColumns = map[string]string{
	"id":        "id",
	"webCardId": "web_card_id",
	"name":      "name",
	"hp":        "hp",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"rarity":    "rarity",
	"supertype": "supertype",
}

// CardFilter is the declarative result of BuildCardFilter, shared by both paths
type CardFilter struct {
	Predicates []Predicate
	SortColumn string
	SortDesc   bool
	Skip       int
	Take       int
}

// RequiresRaw reports whether any predicate needs the raw SQL path
func (f *CardFilter) RequiresRaw() bool {
	for _, p := range f.Predicates {
		if p.RawOnly() {
			return true
		}
	}
	return false
}

// OrderBy renders the ORDER BY list; NULLs sort last and id breaks ties
func (f *CardFilter) OrderBy() string {
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	order := "cards." + f.SortColumn + " " + dir + " NULLS LAST"
	if f.SortColumn != "id" {
		order += ", cards.id " + dir
	}
	return order
}

// Where renders all predicates as one parameterized condition for the raw path
func (f *CardFilter) Where(d Dialect) (string, []any) {
	if len(f.Predicates) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, 0, len(f.Predicates))
	var vars []any
	for _, p := range f.Predicates {
		sql, v := p.SQL(d)
		parts = append(parts, "("+sql+")")
		vars = append(vars, v...)
	}
	return strings.Join(parts, " AND "), vars
}

// Apply adds all predicates to an ORM query
func (f *CardFilter) Apply(tx *gorm.DB, d Dialect) *gorm.DB {
	for _, p := range f.Predicates {
		tx = tx.Where(p.Expression(d))
	}
	return tx
}

// BuildCardFilter turns query parameters into predicates, applying the legacy
// subtypes redirection for evolution stage and rule box values
func BuildCardFilter(q CardQuery, mapper *EnumMapper) *CardFilter {
	f := &CardFilter{
		SortColumn: "created_at",
		SortDesc:   true,
	}
	f.Skip, f.Take = clampPage(q.Skip, q.Take)
	if col, ok := sortColumns[q.SortBy]; ok {
		f.SortColumn = col
		f.SortDesc = !strings.EqualFold(q.SortOrder, "asc")
	}

	add := func(p Predicate) { f.Predicates = append(f.Predicates, p) }
	eq := func(column string, value any) { add(columnPredicate{column: column, op: opEq, value: value}) }

	stage := strings.TrimSpace(q.EvolutionStage)
	ruleBox := strings.TrimSpace(q.RuleBox)
	var subtypes []string
	for _, raw := range splitParam(q.Subtypes) {
		if v, ok := mapper.EvolutionStage(raw); ok {
			if stage == "" {
				stage = string(v)
			}
			continue
		}
		if v, ok := mapper.RuleBox(raw); ok {
			if ruleBox == "" {
				ruleBox = string(v)
			}
			continue
		}
		if v, ok := mapper.Subtype(raw); ok {
			subtypes = append(subtypes, string(v))
		} else {
			subtypes = append(subtypes, raw)
		}
	}

	if v := strings.TrimSpace(q.WebCardID); v != "" {
		eq("web_card_id", v)
	}
	if v := strings.TrimSpace(q.Language); v != "" {
		eq("language", canonicalOr(mapper.Language, v))
	}
	if v := strings.TrimSpace(q.Region); v != "" {
		add(regionIs(models.Region(canonicalOr(mapper.Region, v))))
	}
	if v := strings.TrimSpace(q.ExpansionCode); v != "" {
		add(expansionCodeIs(v))
	}
	if v := strings.TrimSpace(q.Name); v != "" {
		add(containsInsensitive("name", v))
	}
	if v := strings.TrimSpace(q.Supertype); v != "" {
		eq("supertype", canonicalOr(mapper.Supertype, v))
	}
	if types := splitParam(q.Types); len(types) > 0 {
		for i, t := range types {
			types[i] = canonicalOr(mapper.PokemonType, t)
		}
		add(jsonListHasAny("types", types))
	}
	if v := strings.TrimSpace(q.Rarity); v != "" {
		eq("rarity", canonicalOr(mapper.Rarity, v))
	}
	if len(subtypes) > 0 {
		add(jsonListHasAny("subtypes", subtypes))
	}
	if stage != "" {
		eq("evolution_stage", canonicalOr(mapper.EvolutionStage, stage))
	}
	if ruleBox != "" {
		eq("rule_box", canonicalOr(mapper.RuleBox, ruleBox))
	}
	if v := strings.TrimSpace(q.VariantType); v != "" {
		eq("variant_type", canonicalOr(mapper.Variant, v))
	}
	if q.MinHP != nil {
		add(columnPredicate{column: "hp", op: opGte, value: *q.MinHP})
	}
	if q.MaxHP != nil {
		add(columnPredicate{column: "hp", op: opLte, value: *q.MaxHP})
	}
	if v := strings.TrimSpace(q.Artist); v != "" {
		add(containsInsensitive("artist", v))
	}
	if v := strings.TrimSpace(q.RegulationMark); v != "" {
		eq("regulation_mark", strings.ToUpper(v))
	}

	if q.HasAbilities != nil {
		add(hasJSONArray("abilities", *q.HasAbilities))
	}
	if q.HasAttacks != nil {
		add(hasJSONArray("attacks", *q.HasAttacks))
	}
	if q.HasAttackText != nil {
		add(hasAttackText(*q.HasAttackText))
	}
	if v := strings.TrimSpace(q.EvolvesTo); v != "" {
		add(evolvesToIncludes(v))
	}
	if v := strings.TrimSpace(q.AttackName); v != "" {
		add(attackNamed(v))
	}
	return f
}

// canonicalOr maps a filter value, keeping the raw value when it is unknown so
// the filter simply matches nothing
func canonicalOr[T ~string](lookup func(string) (T, bool), raw string) string {
	if v, ok := lookup(raw); ok {
		return string(v)
	}
	return raw
}

func splitParam(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
