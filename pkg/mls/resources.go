package mls

import (
	"fmt"
	"strconv"

	"github.com/fitlcarlos/go-reso/pkg/odata"
)

// propertyFieldPairs é o field map do recurso Property na ordem de declaração.
// MLSNUMBER vem primeiro: é a chave e a ordenação padrão da paginação.
var propertyFieldPairs = [][2]string{
	{"ListingKey", "MLSNUMBER"},
	{"StandardStatus", "IDCSTATUS"},
	{"PropertyType", "IDCPROPTYPE"},
	{"PropertySubType", "IDCPROPSUBTYPE"},
	{"ListPrice", "IDCLISTPRICE"},
	{"ClosePrice", "IDCCLOSEPRICE"},
	{"UnparsedAddress", "ADDRESS"},
	{"StreetNumber", "STREETNUMBER"},
	{"StreetName", "STREETNAME"},
	{"City", "CITY"},
	{"StateOrProvince", "STATE"},
	{"PostalCode", "ZIPCODE"},
	{"CountyOrParish", "COUNTY"},
	{"Latitude", "LATITUDE"},
	{"Longitude", "LONGITUDE"},
	{"BedroomsTotal", "BEDROOMS"},
	{"BathroomsTotalInteger", "BATHROOMS"},
	{"BathroomsFull", "FULLBATHS"},
	{"BathroomsHalf", "HALFBATHS"},
	{"LivingArea", "SQFT"},
	{"LotSizeAcres", "LOTACRES"},
	{"YearBuilt", "YEARBUILT"},
	{"StoriesTotal", "STORIES"},
	{"GarageSpaces", "GARAGESPACES"},
	{"PoolPrivateYN", "HASPOOL"},
	{"PublicRemarks", "REMARKS"},
	{"ListingContractDate", "LISTDATE"},
	{"ModificationTimestamp", "MODIFIED"},
	{"PhotosCount", "PHOTOCOUNT"},
	{"ListAgentKey", "IDCLISTAGENTKEY"},
	{"ListOfficeKey", "IDCLISTOFFICEKEY"},
	{"PhotosXml", "PHOTOXML"},
}

// memberFieldPairs é o field map do recurso Member
var memberFieldPairs = [][2]string{
	{"MemberKey", "AGENTKEY"},
	{"MemberFirstName", "GIVENNAME"},
	{"MemberLastName", "SURNAME"},
	{"MemberFullName", "FULLNAME"},
	{"MemberEmail", "EMAIL"},
	{"MemberPreferredPhone", "PHONE"},
	{"MemberStateLicense", "LICENSENUMBER"},
	{"OfficeKey", "OFFICEKEY"},
	{"MemberStatus", "STATUS"},
	{"ModificationTimestamp", "MODIFIED"},
}

// officeFieldPairs é o field map do recurso Office
var officeFieldPairs = [][2]string{
	{"OfficeKey", "OFFICEKEY"},
	{"OfficeName", "OFFICENAME"},
	{"OfficeAddress1", "ADDRESS"},
	{"OfficeCity", "CITY"},
	{"OfficeStateOrProvince", "STATE"},
	{"OfficePostalCode", "ZIPCODE"},
	{"OfficePhone", "PHONE"},
	{"OfficeEmail", "EMAIL"},
	{"OfficeStatus", "STATUS"},
	{"ModificationTimestamp", "MODIFIED"},
}

// Resources reúne os três recursos RESO expostos pela API
type Resources struct {
	Property *odata.ResourceMetadata
	Member   *odata.ResourceMetadata
	Office   *odata.ResourceMetadata
	Codec    *KeyCodec
}

// NewResources monta os metadados dos recursos compartilhando um codec de
// chave para o Property
func NewResources() *Resources {
	codec := NewKeyCodec()

	member := &odata.ResourceMetadata{
		Name:     "Member",
		Table:    "MLS_AGENT",
		Fields:   odata.NewFieldMap(memberFieldPairs),
		KeyField: "MemberKey",
		ParseKey: parseIntegerKey,
	}

	office := &odata.ResourceMetadata{
		Name:     "Office",
		Table:    "MLS_OFFICE",
		Fields:   odata.NewFieldMap(officeFieldPairs),
		KeyField: "OfficeKey",
		ParseKey: parseIntegerKey,
	}

	property := &odata.ResourceMetadata{
		Name:     "Property",
		Table:    "VW_MLS_COMMON",
		Fields:   odata.NewFieldMap(propertyFieldPairs),
		KeyField: "ListingKey",
		Expansions: []odata.ExpansionSpec{
			{Name: "ListAgent", LocalField: "ListAgentKey", Target: member, ParamPrefix: "agent"},
			{Name: "ListOffice", LocalField: "ListOfficeKey", Target: office, ParamPrefix: "office"},
		},
		Transform: propertyTransform(codec),
		ParseKey:  propertyParseKey(codec),
	}

	return &Resources{
		Property: property,
		Member:   member,
		Office:   office,
		Codec:    codec,
	}
}

// List retorna os recursos na ordem de registro do documento de serviço
func (r *Resources) List() []*odata.ResourceMetadata {
	return []*odata.ResourceMetadata{r.Property, r.Member, r.Office}
}

// propertyTransform codifica a ListingKey e converte o blob de fotos na
// coleção Media do payload RESO
func propertyTransform(codec *KeyCodec) func(entity *odata.OrderedEntity) {
	return func(entity *odata.OrderedEntity) {
		var encodedKey string
		if raw, ok := entity.Get("ListingKey"); ok && raw != nil {
			backendKey := fmt.Sprintf("%v", raw)
			encodedKey = codec.Encode(backendKey)
			entity.Set("ListingKey", encodedKey)
		}

		// PhotosXml é interno: vira a coleção Media e sai do payload
		if raw, ok := entity.Get("PhotosXml"); ok {
			blob := ""
			if raw != nil {
				blob = fmt.Sprintf("%v", raw)
			}
			entity.Set("Media", ParseMediaXML(blob, encodedKey))
			entity.Delete("PhotosXml")
		}
	}
}

// propertyParseKey resolve a chave do path para a chave do backend: chaves na
// forma codificada passam pela tabela do codec; qualquer outra forma é
// tratada como o id cru do backend
func propertyParseKey(codec *KeyCodec) func(raw string) (interface{}, error) {
	return func(raw string) (interface{}, error) {
		if IsEncodedForm(raw) {
			backendKey, ok := codec.Decode(raw)
			if !ok {
				return nil, fmt.Errorf("unknown encoded key: %s", raw)
			}
			return backendKey, nil
		}
		return raw, nil
	}
}

// parseIntegerKey converte chaves inteiras de Member e Office
func parseIntegerKey(raw string) (interface{}, error) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer key: %s", raw)
	}
	return value, nil
}
