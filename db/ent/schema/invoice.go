package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"

	"invoicescan/db/ent/schema/utils"
)

type Invoice struct{ ent.Schema }

func (Invoice) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "invoices"},
	}
}

func (Invoice) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.UUID("vendor_id", uuid.UUID{}),
		field.String("vendor_name").Optional(),
		field.String("invoice_number").Optional(),
		field.Time("invoice_date").
			Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "date"}),
		field.Time("due_date").
			Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "date"}),
		field.Int64("subtotal_cents").Optional().Nillable(),
		field.Int64("tax_cents").Optional().Nillable(),
		field.Int64("total_cents").Optional().Nillable(),
		field.String("currency_code").Optional().MaxLen(3).
			SchemaType(map[string]string{dialect.Postgres: "char(3)"}),
		field.String("status").
			Validate(utils.EnumValidator("uploaded", "processing", "parsed", "error")),
		field.String("error_reason").Optional(),
		field.Float32("confidence").Default(0),
		field.Text("raw_text").Optional(),
		field.Bytes("parsed_payload").Optional(),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (Invoice) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY invoices -> ONE vendor (FK: invoices.vendor_id)
		edge.From("vendor", Vendor.Type).
			Ref("invoices").
			Field("vendor_id").
			Required().
			Unique(),
		// ONE invoice -> MANY line items
		edge.To("items", InvoiceItem.Type),
		// ONE invoice -> MANY alerts
		edge.To("alerts", Alert.Type),
	}
}

func (Invoice) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("vendor_id", "status"),
		index.Fields("invoice_number"),
	}
}
