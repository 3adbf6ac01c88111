package types

// Provenance tags mark how a relationship was discovered.
const (
	SourceManual         = "manual"
	SourceBodyExtraction = "body_extraction"
	SourceAutoEmbedding  = "auto_embedding"
	SourceAutoGenerated  = "auto_generated"
	SourceInferred       = "inferred"
	SourceJira           = "jira"
	SourceGitHub         = "github"
	SourceSlack          = "slack"
	SourceGDocs          = "gdocs"
)

// Common relationship type labels. The set is open; these are the labels the
// inference table produces.
const (
	RelWorksOn        = "works_on"
	RelHasContributor = "has_contributor"
	RelMemberOf       = "member_of"
	RelHasMember      = "has_member"
	RelOwns           = "owns"
	RelOwnedBy        = "owned_by"
	RelUses           = "uses"
	RelUsedBy         = "used_by"
	RelPartOf         = "part_of"
	RelHasPart        = "has_part"
	RelWorksWith      = "works_with"
	RelSimilarTo      = "similar_to"
	RelMentionedIn    = "mentioned_in"
	RelMentions       = "mentions"
)

// Relationship is a typed, directed, provenance-tagged edge stored on the
// source entity. The target is an entity ID. Within one entity's relationship
// list at most one edge may exist per distinct target.
type Relationship struct {
	Type         string                 `json:"type" yaml:"type"`
	Target       string                 `json:"target" yaml:"target"`
	Confidence   float64                `json:"confidence" yaml:"confidence"`
	Source       string                 `json:"source" yaml:"source"`
	LastVerified string                 `json:"last_verified,omitempty" yaml:"last_verified,omitempty"` // YYYY-MM-DD
	Metadata     map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsInferred reports whether the edge was produced by an automatic inference
// pass rather than manual curation or direct extraction.
func (r *Relationship) IsInferred() bool {
	switch r.Source {
	case SourceAutoEmbedding, SourceAutoGenerated, SourceInferred:
		return true
	}
	return false
}

// RelationPair is a forward/inverse relationship type pair for one ordered
// (sourceType, targetType) combination.
type RelationPair struct {
	Forward string
	Inverse string
}

// typePairKey keys the inference table on ordered entity type pairs.
type typePairKey struct {
	source string
	target string
}

// relationInference maps (sourceType, targetType) to the relationship types
// used when one entity's body mentions another. Pairs not listed fall back to
// mentioned_in/mentions. The table is intentionally sparse: only pairings
// with an obvious semantic get a specific label.
var relationInference = map[typePairKey]RelationPair{
	{EntityPerson, EntityProject}:    {RelWorksOn, RelHasContributor},
	{EntityProject, EntityPerson}:    {RelHasContributor, RelWorksOn},
	{EntityPerson, EntityFeature}:    {RelWorksOn, RelHasContributor},
	{EntityFeature, EntityPerson}:    {RelHasContributor, RelWorksOn},
	{EntityPerson, EntitySystem}:     {RelWorksOn, RelHasContributor},
	{EntitySystem, EntityPerson}:     {RelHasContributor, RelWorksOn},
	{EntityPerson, EntityTeam}:       {RelMemberOf, RelHasMember},
	{EntityTeam, EntityPerson}:       {RelHasMember, RelMemberOf},
	{EntityPerson, EntitySquad}:      {RelMemberOf, RelHasMember},
	{EntitySquad, EntityPerson}:      {RelHasMember, RelMemberOf},
	{EntityPerson, EntityPerson}:     {RelWorksWith, RelWorksWith},
	{EntityTeam, EntityProject}:      {RelOwns, RelOwnedBy},
	{EntityProject, EntityTeam}:      {RelOwnedBy, RelOwns},
	{EntitySquad, EntityProject}:     {RelOwns, RelOwnedBy},
	{EntityProject, EntitySquad}:     {RelOwnedBy, RelOwns},
	{EntityTeam, EntitySystem}:       {RelOwns, RelOwnedBy},
	{EntitySystem, EntityTeam}:       {RelOwnedBy, RelOwns},
	{EntitySquad, EntitySystem}:      {RelOwns, RelOwnedBy},
	{EntitySystem, EntitySquad}:      {RelOwnedBy, RelOwns},
	{EntityProject, EntitySystem}:    {RelUses, RelUsedBy},
	{EntitySystem, EntityProject}:    {RelUsedBy, RelUses},
	{EntityFeature, EntityProject}:   {RelPartOf, RelHasPart},
	{EntityProject, EntityFeature}:   {RelHasPart, RelPartOf},
	{EntityExperiment, EntityProject}: {RelPartOf, RelHasPart},
	{EntityProject, EntityExperiment}: {RelHasPart, RelPartOf},
	{EntityProject, EntityDomain}:    {RelPartOf, RelHasPart},
	{EntityDomain, EntityProject}:    {RelHasPart, RelPartOf},
	{EntitySystem, EntityDomain}:     {RelPartOf, RelHasPart},
	{EntityDomain, EntitySystem}:     {RelHasPart, RelPartOf},
	{EntityBrand, EntityProject}:     {RelOwns, RelOwnedBy},
	{EntityProject, EntityBrand}:     {RelOwnedBy, RelOwns},
}

// InferRelationTypes returns the forward/inverse relationship type pair for
// an edge from sourceType to targetType. Unknown or unmapped pairs default
// to mentioned_in/mentions.
func InferRelationTypes(sourceType, targetType string) RelationPair {
	if pair, ok := relationInference[typePairKey{sourceType, targetType}]; ok {
		return pair
	}
	return RelationPair{RelMentionedIn, RelMentions}
}
