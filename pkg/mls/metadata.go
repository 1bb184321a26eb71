package mls

import (
	"fmt"
	"strings"
)

// metadataNamespace é o namespace CSDL do schema RESO exposto
const metadataNamespace = "org.reso.metadata"

// propertyEdmTypes mapeia os campos do Property para tipos Edm. Campos fora
// da tabela saem como Edm.String.
var propertyEdmTypes = map[string]string{
	"ListPrice":             "Edm.Decimal",
	"ClosePrice":            "Edm.Decimal",
	"Latitude":              "Edm.Double",
	"Longitude":             "Edm.Double",
	"BedroomsTotal":         "Edm.Int32",
	"BathroomsTotalInteger": "Edm.Int32",
	"BathroomsFull":         "Edm.Int32",
	"BathroomsHalf":         "Edm.Int32",
	"LivingArea":            "Edm.Decimal",
	"LotSizeAcres":          "Edm.Decimal",
	"YearBuilt":             "Edm.Int32",
	"StoriesTotal":          "Edm.Int32",
	"GarageSpaces":          "Edm.Int32",
	"PoolPrivateYN":         "Edm.Boolean",
	"ListingContractDate":   "Edm.Date",
	"ModificationTimestamp": "Edm.DateTimeOffset",
	"PhotosCount":           "Edm.Int32",
	"ListAgentKey":          "Edm.Int64",
	"ListOfficeKey":         "Edm.Int64",
}

// memberEdmTypes mapeia os campos do Member para tipos Edm
var memberEdmTypes = map[string]string{
	"MemberKey":             "Edm.Int64",
	"OfficeKey":             "Edm.Int64",
	"ModificationTimestamp": "Edm.DateTimeOffset",
}

// officeEdmTypes mapeia os campos do Office para tipos Edm
var officeEdmTypes = map[string]string{
	"OfficeKey":             "Edm.Int64",
	"ModificationTimestamp": "Edm.DateTimeOffset",
}

// BuildMetadataXML monta o documento CSDL servido em /$metadata: o ComplexType
// Media, os três EntityTypes com as navegações do Property e o container.
func BuildMetadataXML(resources *Resources) []byte {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<edmx:Edmx xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx" Version="4.0">` + "\n")
	b.WriteString("  <edmx:DataServices>\n")
	fmt.Fprintf(&b, `    <Schema xmlns="http://docs.oasis-open.org/odata/ns/edm" Namespace="%s">`+"\n", metadataNamespace)

	b.WriteString(`      <ComplexType Name="Media">` + "\n")
	b.WriteString(`        <Property Name="MediaKey" Type="Edm.String"/>` + "\n")
	b.WriteString(`        <Property Name="ResourceRecordKey" Type="Edm.String"/>` + "\n")
	b.WriteString(`        <Property Name="MediaURL" Type="Edm.String"/>` + "\n")
	b.WriteString(`        <Property Name="Order" Type="Edm.Int32"/>` + "\n")
	b.WriteString("      </ComplexType>\n")

	writeEntityType(&b, "Property", "ListingKey", resources.Property.Fields.Names(), propertyEdmTypes, func(b *strings.Builder) {
		// PhotosXml é interno; o payload expõe Media no lugar
		fmt.Fprintf(b, `        <Property Name="Media" Type="Collection(%s.Media)"/>`+"\n", metadataNamespace)
		fmt.Fprintf(b, `        <NavigationProperty Name="ListAgent" Type="%s.Member"/>`+"\n", metadataNamespace)
		fmt.Fprintf(b, `        <NavigationProperty Name="ListOffice" Type="%s.Office"/>`+"\n", metadataNamespace)
	})
	writeEntityType(&b, "Member", "MemberKey", resources.Member.Fields.Names(), memberEdmTypes, nil)
	writeEntityType(&b, "Office", "OfficeKey", resources.Office.Fields.Names(), officeEdmTypes, nil)

	b.WriteString(`      <EntityContainer Name="Container">` + "\n")
	for _, metadata := range resources.List() {
		fmt.Fprintf(&b, `        <EntitySet Name="%s" EntityType="%s.%s"/>`+"\n", metadata.Name, metadataNamespace, metadata.Name)
	}
	b.WriteString("      </EntityContainer>\n")

	b.WriteString("    </Schema>\n")
	b.WriteString("  </edmx:DataServices>\n")
	b.WriteString("</edmx:Edmx>\n")

	return []byte(b.String())
}

// writeEntityType emite um EntityType CSDL com chave, propriedades tipadas e
// o bloco extra (complex types e navegações) quando houver
func writeEntityType(b *strings.Builder, name, keyField string, fields []string, edmTypes map[string]string, extra func(b *strings.Builder)) {
	fmt.Fprintf(b, `      <EntityType Name="%s">`+"\n", name)
	b.WriteString("        <Key>\n")
	fmt.Fprintf(b, `          <PropertyRef Name="%s"/>`+"\n", keyField)
	b.WriteString("        </Key>\n")

	for _, field := range fields {
		if field == "PhotosXml" {
			continue
		}
		edmType, ok := edmTypes[field]
		if !ok {
			edmType = "Edm.String"
		}
		nullable := ""
		if field == keyField {
			nullable = ` Nullable="false"`
		}
		fmt.Fprintf(b, `        <Property Name="%s" Type="%s"%s/>`+"\n", field, edmType, nullable)
	}

	if extra != nil {
		extra(b)
	}
	b.WriteString("      </EntityType>\n")
}
