// ABOUTME: Concrete entity declarations: stores, billboards, categories, colors, sizes, products, contacts
// ABOUTME: Field names match the JSON bodies the storefront and dashboard exchange

package resource

import "regexp"

// Entity names.
const (
	EntityStores     = "stores"
	EntityBillboards = "billboards"
	EntityCategories = "categories"
	EntityColors     = "colors"
	EntitySizes      = "sizes"
	EntityProducts   = "products"
	EntityContacts   = "contacts"
)

var hexColor = regexp.MustCompile(`^#`)

func text(name, column, label string) Field {
	return Field{Name: name, Column: column, Label: label, Kind: KindString, FormRequired: true, MinLen: 1}
}

func longText(name, column, label string) Field {
	return Field{Name: name, Column: column, Label: label, Kind: KindText, FormRequired: true, MinLen: 1}
}

// Stores is the owner scope every other entity hangs off.
var Stores = &Schema{
	Entity:     EntityStores,
	Singular:   "Store",
	Tag:        "STORE",
	Scope:      ScopeUser,
	LabelField: "name",
	CORS:       true,
	Fields: []Field{
		{Name: "name", Column: "name", Label: "Name", Kind: KindString, Required: true, MinLen: 1},
		text("siteLink", "site_link", "Site link"),
		text("cardName", "card_name", "Card name"),
		text("card1Title", "card1_title", "Card 1 title"),
		longText("card1Description", "card1_description", "Card 1 description"),
		text("card2Title", "card2_title", "Card 2 title"),
		longText("card2Description", "card2_description", "Card 2 description"),
		text("card3Title", "card3_title", "Card 3 title"),
		longText("card3Description", "card3_description", "Card 3 description"),
		text("fLogoUrl", "f_logo_url", "Footer logo URL"),
		text("fRes1Title", "f_res1_title", "Footer resource 1 title"),
		text("fRes1Link", "f_res1_link", "Footer resource 1 link"),
		text("fRes2Title", "f_res2_title", "Footer resource 2 title"),
		text("fRes2Link", "f_res2_link", "Footer resource 2 link"),
		text("facebookUrl", "facebook_url", "Facebook URL"),
		text("instagramUrl", "instagram_url", "Instagram URL"),
		text("twitterUrl", "twitter_url", "Twitter URL"),
		longText("privacyPolicy", "privacy_policy", "Privacy policy"),
		longText("termsAndConditions", "terms_and_conditions", "Terms and conditions"),
		longText("contactUsDescription", "contact_us_description", "Contact us description"),
		longText("contactUsCard1Descrition", "contact_us_card1_description", "Contact card 1 description"),
		text("contactUsCard1Email", "contact_us_card1_email", "Contact card 1 email"),
		longText("contactUsCard2Descrition", "contact_us_card2_description", "Contact card 2 description"),
		text("contactUsCard2Phone", "contact_us_card2_phone", "Contact card 2 phone"),
		longText("aboutUsDescription", "about_us_description", "About us description"),
		text("aboutUsPhotoUrl", "about_us_photo_url", "About us photo URL"),
		longText("aboutUsOurStory", "about_us_our_story", "About us our story"),
	},
	DependentsHint: "Make sure you removed all products and categories first.",
}

var Billboards = &Schema{
	Entity:     EntityBillboards,
	Singular:   "Billboard",
	Tag:        "BILLBOARD",
	LabelField: "label",
	Fields: []Field{
		{Name: "label", Column: "label", Label: "Label", Kind: KindString, Required: true, MinLen: 1},
		{Name: "imageUrl", Column: "image_url", Label: "Image URL", Kind: KindString, Required: true, MinLen: 1},
	},
	DependentsHint: "Make sure you removed all categories using this billboard.",
}

var Categories = &Schema{
	Entity:      EntityCategories,
	Singular:    "Category",
	Plural:      "Categories",
	Tag:         "CATEGORY",
	LabelField:  "name",
	ParentField: "parentCategoryId",
	Fields: []Field{
		{Name: "name", Column: "name", Label: "Name", Kind: KindString, Required: true, MinLen: 1},
		{Name: "billboardId", Column: "billboard_id", Label: "Billboard id", Kind: KindRef, Ref: EntityBillboards, Required: true, Filter: true},
		{Name: "parentCategoryId", Column: "parent_category_id", Label: "Parent category id", Kind: KindRef, Ref: EntityCategories, Filter: true, Internal: true},
	},
	DependentsHint: "Make sure you removed all products using this category.",
}

var Colors = &Schema{
	Entity:     EntityColors,
	Singular:   "Color",
	Tag:        "COLOR",
	LabelField: "name",
	Fields: []Field{
		{Name: "name", Column: "name", Label: "Name", Kind: KindString, Required: true, MinLen: 1},
		{
			Name: "value", Column: "value", Label: "Value", Kind: KindString, Required: true,
			MinLen: 4, Pattern: hexColor, PatternMessage: "String must be a valid hex code",
		},
	},
	DependentsHint: "Make sure you removed all products using this color.",
}

var Sizes = &Schema{
	Entity:     EntitySizes,
	Singular:   "Size",
	Tag:        "SIZE",
	LabelField: "name",
	Fields: []Field{
		{Name: "name", Column: "name", Label: "Name", Kind: KindString, Required: true, MinLen: 1},
		{Name: "value", Column: "value", Label: "Value", Kind: KindString, Required: true, MinLen: 1},
	},
	DependentsHint: "Make sure you removed all products using this size.",
}

var Products = &Schema{
	Entity:     EntityProducts,
	Singular:   "Product",
	Tag:        "PRODUCT",
	LabelField: "name",
	HideField:  "isArchived",
	Fields: []Field{
		{Name: "name", Column: "name", Label: "Name", Kind: KindString, Required: true, MinLen: 1},
		{Name: "price", Column: "price", Label: "Price", Kind: KindDecimal, Required: true},
		{Name: "description", Column: "description", Label: "Description", Kind: KindText, Required: true, MinLen: 1},
		{Name: "categoryId", Column: "category_id", Label: "Category id", Kind: KindRef, Ref: EntityCategories, Required: true, Filter: true},
		{Name: "sizeId", Column: "size_id", Label: "Size id", Kind: KindRef, Ref: EntitySizes, Required: true, Filter: true},
		{Name: "colorId", Column: "color_id", Label: "Color id", Kind: KindRef, Ref: EntityColors, Required: true, Filter: true},
		{Name: "images", Column: "images", Label: "Images", Kind: KindImages, Required: true},
		{Name: "isFeatured", Column: "is_featured", Label: "Featured", Kind: KindBool, Filter: true},
		{Name: "isArchived", Column: "is_archived", Label: "Archived", Kind: KindBool},
	},
	DependentsHint: "Something went wrong.",
}

var Contacts = &Schema{
	Entity:       EntityContacts,
	Singular:     "Contact",
	Tag:          "CONTACT",
	LabelField:   "title",
	PublicCreate: true,
	CORS:         true,
	Fields: []Field{
		{Name: "email", Column: "email", Label: "Email", Kind: KindString, Required: true, MinLen: 1},
		{Name: "title", Column: "title", Label: "Title", Kind: KindString, Required: true, MinLen: 1},
		{Name: "message", Column: "message", Label: "Message", Kind: KindText, Required: true, MinLen: 1},
	},
	DependentsHint: "Something went wrong.",
}

// DefaultRegistry holds every entity in dependency order: a schema only
// references schemas registered before it (or itself).
func DefaultRegistry() *Registry {
	return NewRegistry(Stores, Billboards, Categories, Colors, Sizes, Products, Contacts)
}
