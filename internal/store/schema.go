package store

// SchemaSQL contains the database schema initialization SQL.
// Mirrors the hosted catalog's document shapes (Products, ProductCategories,
// ProductSubcategories, Automacoes prompt docs, daily usage stats).
const SchemaSQL = `
    -- ==========================================================================
    -- PRODUCT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS product SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON product TYPE string;
    DEFINE FIELD IF NOT EXISTS image_url ON product TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS categoriesIds ON product TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS subcategoriesIds ON product TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS shelves ON product TYPE array<object> FLEXIBLE DEFAULT [];
    DEFINE FIELD IF NOT EXISTS shelvesIds ON product TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS establishment_id ON product TYPE string;
    DEFINE FIELD IF NOT EXISTS updated_at ON product TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS product_establishment ON product FIELDS establishment_id;
    DEFINE INDEX IF NOT EXISTS product_categories ON product FIELDS categoriesIds;

    -- ==========================================================================
    -- CATEGORY / SUBCATEGORY VOCABULARY
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS category SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS category_id ON category TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON category TYPE string;
    DEFINE FIELD IF NOT EXISTS is_active ON category TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS establishment_id ON category TYPE string;
    DEFINE INDEX IF NOT EXISTS category_establishment ON category FIELDS establishment_id;

    DEFINE TABLE IF NOT EXISTS subcategory SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS subcategory_id ON subcategory TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON subcategory TYPE string;
    DEFINE FIELD IF NOT EXISTS category_id ON subcategory TYPE string;
    DEFINE FIELD IF NOT EXISTS establishment_id ON subcategory TYPE string;
    DEFINE INDEX IF NOT EXISTS subcategory_establishment ON subcategory FIELDS establishment_id;
    DEFINE INDEX IF NOT EXISTS subcategory_parent ON subcategory FIELDS category_id;

    -- ==========================================================================
    -- AUTOMATION PROMPTS (editable from the dashboard)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS automation_prompt SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS tool ON automation_prompt TYPE string;
    DEFINE FIELD IF NOT EXISTS prompt ON automation_prompt TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON automation_prompt TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS updated_at ON automation_prompt TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- DAILY TOKEN USAGE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS daily_usage SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS date ON daily_usage TYPE string;
    DEFINE FIELD IF NOT EXISTS tokens ON daily_usage TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS cost ON daily_usage TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS calls ON daily_usage TYPE int DEFAULT 0;
    DEFINE INDEX IF NOT EXISTS daily_usage_date ON daily_usage FIELDS date UNIQUE;
`
