package cart

const breakerName = "cart"
