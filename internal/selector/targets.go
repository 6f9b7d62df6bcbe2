package selector

// ProductPathMarker is the path segment every product detail URL carries.
const ProductPathMarker = "/product/"

// targetStrategies holds the per-target fallback chains, most specific
// first. The storefront reshuffles class names between deploys, so every
// chain ends with a structural guess.
var targetStrategies = map[Target][]Strategy{
	ProductLinks: {
		{Query: "a.link_thumb", HrefContains: ProductPathMarker},
		{Query: "a[href*='/product/']", HrefContains: ProductPathMarker},
		{Query: ".product_item a", HrefContains: ProductPathMarker},
		{Query: ".item_thumb a", HrefContains: ProductPathMarker},
		{Query: ".thumb_area a", HrefContains: ProductPathMarker},
		{Query: "[class*='thumb'] a", HrefContains: ProductPathMarker},
		{Query: ".product_link", HrefContains: ProductPathMarker},
		{Query: "a[class*='product']", HrefContains: ProductPathMarker},
	},
	Title: {
		{Query: "h2.tit_subject", RequireText: true},
	},
	Price: {
		{Query: "span.txt_total", RequireText: true},
	},
	MetaImage: {
		{Query: "meta[property='og:image']"},
	},
	DetailImages: {
		{Query: "div._editor_contents img", RequireSrc: true},
		{Query: "[imglazyload] img", RequireSrc: true},
		{Query: "div[class*='editor'] img", RequireSrc: true},
		{Query: ".wrap_editor img", RequireSrc: true},
	},
	Breadcrumbs: {
		{Query: ".breadcrumb li, .breadcrumb a", RequireText: true},
		{Query: "nav.breadcrumb li, nav.breadcrumb a", RequireText: true},
		{Query: "ul.breadcrumb li, ul.breadcrumb a", RequireText: true},
	},
	NextControl: {
		{Query: "a.next", RequireVisible: true},
		{Query: "button.next", RequireVisible: true},
		{Query: "a[rel='next']", RequireVisible: true},
		{Query: "[class*='next']", RequireVisible: true},
		{Query: "[class*='Next']", RequireVisible: true},
	},
	CategoryTabs: {
		{Query: "ul.list_home_theme_type_category li a.link_item"},
		{Query: ".list_home_theme_type_category a.link_item"},
		{Query: "app-view-theme-excluding-brand a.link_item"},
		{Query: ".group_home_theme a.link_item"},
		{Query: ".area_theme a[aria-label]"},
	},
	TabGroup: {
		{Query: ".group_tab a.link_tab", RequireText: true},
	},
}

// Strategies returns the ordered locator chain for a target. Unknown
// targets resolve to nothing.
func Strategies(target Target) []Strategy {
	return targetStrategies[target]
}
