package r4

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhir-engine/codec"
	"fhir-engine/diagnostic"
	"fhir-engine/model"
	"fhir-engine/validation"
)

func TestTask_Valid(t *testing.T) {
	reg := Registry()
	rt := reg.MustResolve("Task")

	task := model.New(rt)
	require.NoError(t, task.Set("status", "in-progress"))
	require.NoError(t, task.Set("intent", "order"))

	diags := validation.Validate(task, rt)
	assert.Zero(t, diags.Len(), "issues: %v", diags.All())

	decoded, err := codec.NewJSON(reg).Decode([]byte(`{"resourceType":"Task","status":"in-progress","intent":"order"}`), rt)
	require.NoError(t, err)
	assert.True(t, task.Equal(decoded))
}

func TestTask_MissingStatus(t *testing.T) {
	rt := Registry().MustResolve("Task")

	task := model.New(rt)
	require.NoError(t, task.Set("intent", "order"))

	diags := validation.Validate(task, rt)
	require.Len(t, diags.Errors, 1)
	assert.Empty(t, diags.Warnings)

	issue := diags.Errors[0]
	assert.Equal(t, diagnostic.CodeMissingRequiredField, issue.Code)
	assert.Equal(t, "Task", issue.Type)
	assert.Equal(t, "Task.status", issue.FieldPath)
}

func TestTask_Bindings(t *testing.T) {
	rt := Registry().MustResolve("Task")

	tests := []struct {
		name     string
		field    string
		value    any
		errors   int
		warnings int
	}{
		{name: "required binding rejects unknown code", field: "priority", value: "whenever", errors: 1},
		{name: "required binding accepts listed code", field: "priority", value: "stat"},
		{name: "preferred binding without codes", field: "language", value: "en-US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := model.New(rt)
			require.NoError(t, task.Set("status", "draft"))
			require.NoError(t, task.Set("intent", "plan"))
			require.NoError(t, task.Set(tt.field, tt.value))

			diags := validation.Validate(task, rt)
			assert.Len(t, diags.Errors, tt.errors)
			assert.Len(t, diags.Warnings, tt.warnings)

			for _, d := range diags.Errors {
				assert.Equal(t, diagnostic.CodeInvalidCode, d.Code)
				assert.Equal(t, "Task."+tt.field, d.FieldPath)
			}
		})
	}
}

func TestTaskInput_ChoiceReplacesVariant(t *testing.T) {
	rt := Registry().MustResolve("Task.Input")

	input := model.New(rt)
	require.NoError(t, input.SetVariant("value", "string", "first"))
	require.NoError(t, input.SetVariant("value", "integer", int64(3)))

	variant, value, ok := input.ActiveVariant("value")
	require.True(t, ok)
	assert.Equal(t, "valueInteger", variant.Name)
	assert.Equal(t, int64(3), value)

	assert.False(t, input.Has("valueString"))
	assert.Empty(t, input.ChoiceConflicts())

	data, err := codec.NewJSON(Registry()).Encode(input)
	require.NoError(t, err)
	assert.JSONEq(t, `{"valueInteger":3}`, string(data))
}

func TestTaskInput_InfersVariantByGoType(t *testing.T) {
	rt := Registry().MustResolve("Task.Input")

	tests := []struct {
		value   any
		variant string
	}{
		{"x", "valueString"},
		{5, "valueInteger"},
		{int64(5), "valueInteger"},
		{2.5, "valueDecimal"},
		{decimal.RequireFromString("2.50"), "valueDecimal"},
		{true, "valueBoolean"},
		{[]byte("hi"), "valueBase64Binary"},
		{time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), "valueDateTime"},
		{model.New(Registry().MustResolve("Period")), "valuePeriod"},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			input := model.New(rt)
			require.NoError(t, input.Set("value", tt.value))

			v, _, ok := input.ActiveVariant("value")
			require.True(t, ok)
			assert.Equal(t, tt.variant, v.Name)
		})
	}
}

func TestMolecularSequenceVariant_XMLRoundTrip(t *testing.T) {
	reg := Registry()
	rt := reg.MustResolve("MolecularSequence.Variant")

	pointer := model.New(reg.MustResolve("Reference"))
	require.NoError(t, pointer.Set("reference", "MolecularSequence/seq-2"))

	variant := model.New(rt)
	require.NoError(t, variant.Set("start", int64(128)))
	require.NoError(t, variant.Set("local_end", int64(129)))
	require.NoError(t, variant.Set("observedAllele", "G"))
	require.NoError(t, variant.Set("variantPointer", pointer))

	xmlCodec := codec.NewXML(reg)

	data, err := xmlCodec.Encode(variant)
	require.NoError(t, err)
	assert.Equal(t,
		`<Variant xmlns="http://hl7.org/fhir"><start value="128"></start><end value="129"></end>`+
			`<observedAllele value="G"></observedAllele>`+
			`<variantPointer><reference value="MolecularSequence/seq-2"></reference></variantPointer></Variant>`,
		string(data))

	decoded, err := xmlCodec.Decode(data, rt)
	require.NoError(t, err)

	start, _ := decoded.Get("start")
	end, _ := decoded.Get("local_end")
	assert.Equal(t, int64(128), start)
	assert.Equal(t, int64(129), end)
	assert.True(t, variant.Equal(decoded))
}

func TestInsurancePlan_RenamedAlias(t *testing.T) {
	reg := Registry()
	jsonCodec := codec.NewJSON(reg)

	plan, err := jsonCodec.DecodeResource([]byte(`{"resourceType":"InsurancePlan","status":"active","alias":["Old Name"]}`))
	require.NoError(t, err)

	alias, ok := plan.Get("local_alias")
	require.True(t, ok)
	assert.Equal(t, []any{"Old Name"}, alias)
	assert.Empty(t, plan.Unknown())

	data, err := jsonCodec.Encode(plan)
	require.NoError(t, err)
	assert.Equal(t, `{"resourceType":"InsurancePlan","status":"active","alias":["Old Name"]}`, string(data))

	diags := validation.Validate(plan, plan.Type())
	assert.False(t, diags.HasErrors())
}

func TestInsurancePlan_AliasExtensionsStayAligned(t *testing.T) {
	reg := Registry()
	jsonCodec := codec.NewJSON(reg)
	xmlCodec := codec.NewXML(reg)

	doc := `{"resourceType":"InsurancePlan","alias":[null,"B"],"_alias":[{"id":"a1"},null]}`

	plan, err := jsonCodec.DecodeResource([]byte(doc))
	require.NoError(t, err)

	alias, _ := plan.Get("local_alias")
	assert.Equal(t, []any{"B"}, alias)

	data, err := jsonCodec.Encode(plan)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))

	xmlDoc, err := xmlCodec.Encode(plan)
	require.NoError(t, err)
	assert.Equal(t,
		`<InsurancePlan xmlns="http://hl7.org/fhir"><alias id="a1"></alias><alias value="B"></alias></InsurancePlan>`,
		string(xmlDoc))

	fromXML, err := xmlCodec.DecodeResource(xmlDoc)
	require.NoError(t, err)

	alias, _ = fromXML.Get("local_alias")
	assert.Equal(t, []any{"B"}, alias)

	again, err := xmlCodec.Encode(fromXML)
	require.NoError(t, err)
	assert.Equal(t, string(xmlDoc), string(again))

	diags := validation.Validate(plan, plan.Type())
	assert.Empty(t, diags.ByCode(diagnostic.CodeUnknownElement))
}

func TestInsurancePlan_ExtensionOnlyAlias(t *testing.T) {
	reg := Registry()
	jsonCodec := codec.NewJSON(reg)

	doc := `{"resourceType":"InsurancePlan","alias":[null],"_alias":[{"id":"a1"}]}`

	plan, err := jsonCodec.DecodeResource([]byte(doc))
	require.NoError(t, err)
	assert.False(t, plan.Has("local_alias"))

	data, err := jsonCodec.Encode(plan)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))

	reread, err := jsonCodec.DecodeResource(data)
	require.NoError(t, err)
	assert.True(t, plan.Equal(reread))
}

func TestTask_ResourceIDFormat(t *testing.T) {
	rt := Registry().MustResolve("Task")

	task := model.New(rt)
	require.NoError(t, task.Set("id", "task-1.a"))
	assert.Error(t, task.Set("id", "not a valid id"))

	_, err := codec.NewJSON(Registry()).Decode([]byte(`{"resourceType":"Task","id":"bad id!","status":"draft","intent":"order"}`), rt)
	assert.ErrorContains(t, err, "Task.id")
}

// Documents that decode without errors and survive a JSON to XML and back
// conversion unchanged.
var sampleDocuments = map[string]string{
	"ExampleScenario": `{
		"resourceType": "ExampleScenario",
		"status": "draft",
		"actor": [{"actorId": "Nurse", "type": "person", "name": "Nurse"}],
		"instance": [{"resourceId": "iherx001", "resourceType": "MedicationRequest", "name": "Initial Prescription"}],
		"process": [{
			"title": "Mobile Medication Administration",
			"step": [
				{"operation": {"number": "1", "name": "Get today's schedule", "initiator": "Nurse", "receiver": "MAP"}},
				{"process": [{"title": "Nested", "step": [{"pause": true}]}]}
			]
		}]
	}`,
	"Measure": `{
		"resourceType": "Measure",
		"status": "active",
		"subjectCodeableConcept": {"coding": [{"system": "http://hl7.org/fhir/resource-types", "code": "Patient"}]},
		"scoring": {"coding": [{"system": "http://terminology.hl7.org/CodeSystem/measure-scoring", "code": "proportion"}]},
		"group": [{
			"population": [{
				"code": {"coding": [{"system": "http://terminology.hl7.org/CodeSystem/measure-population", "code": "numerator"}]},
				"criteria": {"language": "text/cql", "expression": "Numerator"}
			}]
		}]
	}`,
	"Task": `{
		"resourceType": "Task",
		"id": "t1",
		"status": "requested",
		"intent": "order",
		"priority": "urgent",
		"for": {"reference": "Patient/p1"},
		"executionPeriod": {"start": "2024-01-02", "end": "2024-01-03T10:00:00Z"},
		"input": [{
			"type": {"text": "dose"},
			"valueQuantity": {"value": 2.50, "unit": "mg"}
		}]
	}`,
}

func TestSampleDocuments(t *testing.T) {
	reg := Registry()
	jsonCodec := codec.NewJSON(reg)
	xmlCodec := codec.NewXML(reg)

	for name, doc := range sampleDocuments {
		t.Run(name, func(t *testing.T) {
			inst, err := jsonCodec.DecodeResource([]byte(doc))
			require.NoError(t, err)
			assert.Equal(t, name, inst.Type().Name)

			diags := validation.Validate(inst, inst.Type())
			assert.False(t, diags.HasErrors(), "errors: %v", diags.Errors)
			assert.Empty(t, diags.Warnings)

			data, err := xmlCodec.Encode(inst)
			require.NoError(t, err)

			fromXML, err := xmlCodec.DecodeResource(data)
			require.NoError(t, err)
			assert.True(t, inst.Equal(fromXML), "xml: %s", data)

			again, err := jsonCodec.Encode(fromXML)
			require.NoError(t, err)

			reread, err := jsonCodec.DecodeResource(again)
			require.NoError(t, err)
			assert.True(t, inst.Equal(reread))
		})
	}
}
