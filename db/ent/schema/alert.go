package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"

	"invoicescan/db/ent/schema/utils"
)

type Alert struct{ ent.Schema }

func (Alert) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "alerts"},
	}
}

func (Alert) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.UUID("invoice_id", uuid.UUID{}),
		field.String("type").
			Validate(utils.EnumValidator("duplicate_invoice", "price_deviation")),
		field.Text("message").NotEmpty(),
		field.String("severity").
			Validate(utils.EnumValidator("low", "medium", "high")),
		field.String("status").
			Default("active").
			Validate(utils.EnumValidator("active", "resolved")),
		field.Time("created_at").Default(time.Now),
	}
}

func (Alert) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY alerts -> ONE invoice (FK: alerts.invoice_id)
		edge.From("invoice", Invoice.Type).
			Ref("alerts").
			Field("invoice_id").
			Required().
			Unique(),
	}
}

func (Alert) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("invoice_id", "status"),
	}
}
