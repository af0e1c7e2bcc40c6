package db

import "fmt"

// schemaSQL builds the schema initialization SQL for the given embedding
// dimension. The HNSW index dimension must match the embedder output exactly;
// a mismatch surfaces as a search failure, not silently degraded recall.
func schemaSQL(dimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- KNOWLEDGE ATOM TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS knowledge_atom SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS type ON knowledge_atom TYPE string
        ASSERT $value IN ["fault", "procedure", "spec", "part", "tip", "safety"];
    DEFINE FIELD IF NOT EXISTS manufacturer ON knowledge_atom TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS model ON knowledge_atom TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS equipment_type ON knowledge_atom TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS title ON knowledge_atom TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON knowledge_atom TYPE string;
    DEFINE FIELD IF NOT EXISTS source_url ON knowledge_atom TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS confidence ON knowledge_atom TYPE float DEFAULT 0.5;
    DEFINE FIELD IF NOT EXISTS human_verified ON knowledge_atom TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS usage_count ON knowledge_atom TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS embedding ON knowledge_atom TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created_at ON knowledge_atom TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS last_verified ON knowledge_atom TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS atom_type ON knowledge_atom FIELDS type;
    DEFINE INDEX IF NOT EXISTS atom_manufacturer ON knowledge_atom FIELDS manufacturer;
    DEFINE INDEX IF NOT EXISTS atom_embedding ON knowledge_atom FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS atom_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS atom_content_ft ON knowledge_atom FIELDS content FULLTEXT ANALYZER atom_analyzer BM25;

    -- ==========================================================================
    -- KNOWLEDGE GAP TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS knowledge_gap SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS query ON knowledge_gap TYPE string;
    DEFINE FIELD IF NOT EXISTS manufacturer ON knowledge_gap TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS model ON knowledge_gap TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS confidence_score ON knowledge_gap TYPE float;
    DEFINE FIELD IF NOT EXISTS research_status ON knowledge_gap TYPE string DEFAULT "pending"
        ASSERT $value IN ["pending", "in_progress", "completed", "failed"];
    DEFINE FIELD IF NOT EXISTS occurrence_count ON knowledge_gap TYPE int DEFAULT 1;
    DEFINE FIELD IF NOT EXISTS priority ON knowledge_gap TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS resolved_atom_id ON knowledge_gap TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS resolved_at ON knowledge_gap TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created_at ON knowledge_gap TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON knowledge_gap TYPE datetime DEFAULT time::now();

    -- Dedup constraint: while pending, the (query, manufacturer, model) triple
    -- must be unique. Non-pending rows key on their own record id so resolved
    -- or failed gaps never block a fresh occurrence of the same triple.
    DEFINE FIELD IF NOT EXISTS dedup_key ON knowledge_gap
        VALUE IF research_status = "pending"
            THEN string::concat(query, "|", manufacturer ?? "", "|", model ?? "")
            ELSE <string>id
        END;
    DEFINE INDEX IF NOT EXISTS gap_dedup ON knowledge_gap FIELDS dedup_key UNIQUE;
    DEFINE INDEX IF NOT EXISTS gap_status ON knowledge_gap FIELDS research_status;
`, dimension)
}
